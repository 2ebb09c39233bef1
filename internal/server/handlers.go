package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/Abhay650/RakshaNeeti/internal/income"
	"github.com/Abhay650/RakshaNeeti/internal/logger"
	"github.com/Abhay650/RakshaNeeti/internal/recommend"
	"github.com/Abhay650/RakshaNeeti/internal/translate"
)

const predictRequestSchema = `{
  "type": "object",
  "required": ["state", "income_text"],
  "properties": {
    "state": {"type": "string", "minLength": 1, "pattern": "\\S"},
    "income_text": {"type": "string"},
    "language": {"type": "string"}
  },
  "additionalProperties": false
}`

type predictRequest struct {
	State      string `json:"state"`
	IncomeText string `json:"income_text"`
	Language   string `json:"language"`
}

type predictResponse struct {
	RecommendedScheme string                       `json:"recommended_scheme"`
	State             string                       `json:"state"`
	IncomeLevel       income.Level                 `json:"income_level"`
	Approximate       bool                         `json:"approximate"`
	Strategy          recommend.Strategy           `json:"strategy"`
	Fallback          string                       `json:"fallback,omitempty"`
	Matches           []recommend.Match            `json:"matches"`
	Translation       *translate.SchemeTranslation `json:"translation,omitempty"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, defaultMaxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("read body: %v", err))
		return
	}

	if err := s.validatePredict(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req predictRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("decode body: %v", err))
		return
	}

	q := recommend.NewQuery(req.State, req.IncomeText)
	result, err := s.engine.Recommend(r.Context(), q)
	if err != nil {
		s.requestFailed(w, r, err)
		return
	}

	resp := predictResponse{
		State:       q.State,
		IncomeLevel: q.IncomeLevel,
		Approximate: result.Approximate(),
		Strategy:    result.Strategy,
		Fallback:    result.Fallback,
		Matches:     result.Matches,
	}
	if resp.Matches == nil {
		resp.Matches = []recommend.Match{}
	}

	if best := result.Best(); best != nil {
		resp.RecommendedScheme = best.Scheme.Name
		if s.translator != nil && req.Language != "" {
			translation := s.translator.TranslateScheme(r.Context(), best.Scheme, req.Language)
			resp.Translation = &translation
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// validatePredict checks body against the request schema.
func (s *Server) validatePredict(body []byte) error {
	result, err := s.predictSchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("invalid JSON body: %v", err)
	}
	if result.Valid() {
		return nil
	}

	errs := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		errs[i] = desc.String()
	}
	return errors.New(strings.Join(errs, "; "))
}

func (s *Server) handleSchemes(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	state := strings.TrimSpace(params.Get("state"))
	if state == "" {
		writeError(w, http.StatusBadRequest, "state query parameter is required")
		return
	}

	strategy, err := recommend.ParseStrategy(params.Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := recommend.NewQuery(state, params.Get("income_text"))
	if raw := params.Get("income_level"); raw != "" {
		level, err := income.ParseLevel(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		q.IncomeLevel = level
	}

	result, err := s.engine.RecommendWith(r.Context(), strategy, q)
	if err != nil {
		s.requestFailed(w, r, err)
		return
	}
	if result.Matches == nil {
		result.Matches = []recommend.Match{}
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"states": s.engine.States()})
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.transcriber == nil {
		writeError(w, http.StatusServiceUnavailable, "speech recognition is not configured")
		return
	}

	audio, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxAudioBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("read audio: %v", err))
		return
	}
	if len(audio) == 0 {
		writeError(w, http.StatusBadRequest, "audio body is empty")
		return
	}

	mimeType := r.Header.Get("Content-Type")
	if mimeType == "application/octet-stream" {
		mimeType = ""
	}

	writeJSON(w, http.StatusOK, map[string]string{"text": s.transcriber.TranscribeAs(r.Context(), audio, mimeType)})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestFailed answers an engine failure with 400 and the error as detail.
func (s *Server) requestFailed(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Warn("request failed",
		zap.String(logger.FieldRequestID, RequestID(r.Context())),
		zap.Error(err),
	)
	writeError(w, http.StatusBadRequest, err.Error())
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
