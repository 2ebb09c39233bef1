package schemes

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/Abhay650/RakshaNeeti/internal/income"
)

const (
	EncodingAuto        = "auto"
	EncodingUTF8        = "utf-8"
	EncodingLatin1      = "iso-8859-1"
	EncodingWindows1252 = "windows-1252"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LoadOptions controls how a dataset file is read.
type LoadOptions struct {
	// SkipRows is the number of records discarded before the header row.
	SkipRows int
	// Encoding is one of the Encoding* constants. Empty means auto.
	Encoding string
	// S3 is used when the source is an s3:// URI.
	S3 S3Options
}

type column struct {
	key       string
	label     string
	aliases   []string
	fragments []string
	required  bool
}

var columns = []column{
	{
		key:       "name",
		label:     "Scheme Name",
		aliases:   []string{"Scheme Name", "Scheme Name (English)", "scheme_name"},
		fragments: []string{"scheme name", "scheme", "name"},
		required:  true,
	},
	{
		key:       "eligibility",
		label:     "Eligibility",
		aliases:   []string{"Eligibility"},
		fragments: []string{"eligib"},
		required:  true,
	},
	{
		key:       "scope",
		label:     "State/National",
		aliases:   []string{"State/National", "State"},
		fragments: []string{"state", "national"},
		required:  true,
	},
	{
		key:       "description",
		label:     "Description",
		aliases:   []string{"Description"},
		fragments: []string{"descr"},
	},
}

// row is the decoding target for a single dataset record.
type row struct {
	Name        string                 `mapstructure:"name"`
	Eligibility string                 `mapstructure:"eligibility"`
	Scope       string                 `mapstructure:"scope"`
	Description string                 `mapstructure:"description"`
	Extra       map[string]interface{} `mapstructure:",remain"`
}

// LoadSource opens source (a local path or an s3:// URI) and loads it.
func LoadSource(ctx context.Context, source string, opts LoadOptions, logger *zap.Logger) (*Schemes, error) {
	rc, err := Open(ctx, source, opts.S3)
	if err != nil {
		return nil, fmt.Errorf("open dataset %q: %w", source, err)
	}
	defer rc.Close()

	return Load(rc, opts, logger)
}

// Load parses a CSV dataset of schemes. Every returned scheme has a name, a
// scope and a classified income level.
func Load(r io.Reader, opts LoadOptions, logger *zap.Logger) (*Schemes, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	text, err := decode(raw, opts.Encoding)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	for i := 0; i < opts.SkipRows; i++ {
		if _, err := reader.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, &EmptyDatasetError{}
			}
			return nil, fmt.Errorf("skip row %d: %w", i+1, err)
		}
	}

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &EmptyDatasetError{}
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	indexes, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	extras := extraColumns(header, indexes)

	logger.Debug("dataset columns resolved",
		zap.Any("columns", indexes),
		zap.Strings("extra_columns", extras),
	)

	items := make([]*Scheme, 0)
	skipped := 0
	line := opts.SkipRows + 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			skipped++
			logger.Debug("skipping malformed row", zap.Int("row", line), zap.Error(err))
			continue
		}

		input := make(map[string]interface{}, len(header))
		for key, idx := range indexes {
			input[key] = field(record, idx)
		}
		for idx, name := range header {
			key := strings.ToLower(name)
			if _, claimed := indexes[key]; claimed || key == "" || isClaimed(indexes, idx) {
				continue
			}
			if value := field(record, idx); value != "" {
				input[key] = value
			}
		}

		var decoded row
		if err := mapstructure.Decode(input, &decoded); err != nil {
			return nil, fmt.Errorf("decode row %d: %w", line, err)
		}

		scheme := toScheme(decoded)
		if scheme.Name == "" || scheme.Scope == "" {
			skipped++
			logger.Debug("skipping row without name or scope", zap.Int("row", line))
			continue
		}

		items = append(items, scheme)
	}

	if len(items) == 0 {
		return nil, &EmptyDatasetError{Skipped: skipped}
	}

	logger.Info("dataset loaded", zap.Int("schemes", len(items)), zap.Int("skipped_rows", skipped))

	return &Schemes{Items: items}, nil
}

func toScheme(r row) *Scheme {
	scope := strings.TrimSpace(r.Scope)
	if strings.EqualFold(scope, National) {
		scope = National
	}

	scheme := &Scheme{
		Name:        strings.TrimSpace(r.Name),
		Eligibility: strings.TrimSpace(r.Eligibility),
		Scope:       scope,
		Description: strings.TrimSpace(r.Description),
	}
	scheme.IncomeLevel = income.Classify(scheme.Eligibility)

	if len(r.Extra) > 0 {
		scheme.Columns = make(map[string]string, len(r.Extra))
		for key, value := range r.Extra {
			if s, ok := value.(string); ok {
				scheme.Columns[key] = s
			}
		}
	}

	return scheme
}

// resolveColumns maps canonical keys to header indexes. Exact labels are
// tried for every column first, then case-insensitive labels, then
// case-insensitive fragments, so a fallback never steals an exact match.
func resolveColumns(header []string) (map[string]int, error) {
	indexes := make(map[string]int, len(columns))
	used := make(map[int]bool, len(header))

	claim := func(c column, match func(h string) bool) {
		if _, ok := indexes[c.key]; ok {
			return
		}
		for idx, h := range header {
			if used[idx] || h == "" {
				continue
			}
			if match(h) {
				indexes[c.key] = idx
				used[idx] = true
				return
			}
		}
	}

	for _, c := range columns {
		for _, alias := range c.aliases {
			claim(c, func(h string) bool { return h == alias })
		}
	}
	for _, c := range columns {
		for _, alias := range c.aliases {
			claim(c, func(h string) bool { return strings.EqualFold(h, alias) })
		}
	}
	for _, c := range columns {
		for _, fragment := range c.fragments {
			claim(c, func(h string) bool { return strings.Contains(strings.ToLower(h), fragment) })
		}
	}

	for _, c := range columns {
		if _, ok := indexes[c.key]; !ok && c.required {
			return nil, &DataFormatError{Column: c.label, Available: header}
		}
	}

	return indexes, nil
}

func extraColumns(header []string, indexes map[string]int) []string {
	extras := make([]string, 0)
	for idx, h := range header {
		if h == "" || isClaimed(indexes, idx) {
			continue
		}
		extras = append(extras, strings.ToLower(h))
	}
	return extras
}

func isClaimed(indexes map[string]int, idx int) bool {
	for _, i := range indexes {
		if i == idx {
			return true
		}
	}
	return false
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// decode converts raw dataset bytes to UTF-8 text. It never fails on
// undecodable bytes, they are replaced instead.
func decode(raw []byte, encoding string) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)

	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", EncodingAuto:
		if utf8.Valid(raw) {
			return string(raw), nil
		}
		return decodeCharmap(charmap.Windows1252, raw)
	case EncodingUTF8, "utf8":
		return strings.ToValidUTF8(string(raw), string(utf8.RuneError)), nil
	case EncodingLatin1, "latin1", "latin-1":
		return decodeCharmap(charmap.ISO8859_1, raw)
	case EncodingWindows1252, "cp1252":
		return decodeCharmap(charmap.Windows1252, raw)
	default:
		return "", fmt.Errorf("unsupported dataset encoding %q", encoding)
	}
}

func decodeCharmap(cm *charmap.Charmap, raw []byte) (string, error) {
	out, err := cm.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode dataset as %s: %w", cm, err)
	}
	return strings.ToValidUTF8(string(out), string(utf8.RuneError)), nil
}
