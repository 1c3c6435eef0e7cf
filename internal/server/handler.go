package server

import (
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"thooimai-go/internal/errs"
	"thooimai-go/internal/types"
)

const multipartMemory = 8 << 20

// errBadRequest carries a client-facing validation message.
type errBadRequest string

func (e errBadRequest) Error() string { return string(e) }

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	log := s.log.WithRequest(r).WithField("handler", "analyze-report")

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadMB<<20)
	sub, err := s.readSubmission(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "audio file too large")
		case errors.Is(err, errForbidden):
			writeError(w, http.StatusForbidden, err.Error())
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		log.WithField("reason", err.Error()).Warn("rejected submission")
		return
	}

	log = log.WithField("user_id", sub.UserID)
	res, err := s.opts.Assembler.Assemble(r.Context(), sub)
	if err != nil {
		status := http.StatusInternalServerError
		if errs.IsUnprocessable(err) {
			status = http.StatusUnprocessableEntity
		}
		log.WithField("error", err.Error()).WithField("status", status).Warn("report failed")
		writeError(w, status, errs.UserMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

var errForbidden = errors.New("user_id does not match the authenticated user")

func (s *Server) readSubmission(r *http.Request) (types.Submission, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return types.Submission{}, err
		}
		return types.Submission{}, errBadRequest("expected a multipart form")
	}

	file, header, err := r.FormFile("audio_file")
	if err != nil {
		return types.Submission{}, errBadRequest("audio_file is required")
	}
	defer file.Close()
	audio, err := io.ReadAll(file)
	if err != nil {
		return types.Submission{}, err
	}
	if len(audio) == 0 {
		return types.Submission{}, errBadRequest("audio_file is empty")
	}

	userID := strings.TrimSpace(r.FormValue("user_id"))
	if uid, ok := authUserID(r.Context()); ok {
		if userID != "" && userID != uid {
			return types.Submission{}, errForbidden
		}
		userID = uid
	}
	if userID == "" {
		return types.Submission{}, errBadRequest("user_id is required")
	}

	imageURL := strings.TrimSpace(r.FormValue("image_url"))
	if imageURL == "" {
		return types.Submission{}, errBadRequest("image_url is required")
	}
	lat, err := parseCoordinate(r.FormValue("latitude"), "latitude")
	if err != nil {
		return types.Submission{}, err
	}
	lng, err := parseCoordinate(r.FormValue("longitude"), "longitude")
	if err != nil {
		return types.Submission{}, err
	}

	return types.Submission{
		Audio:       audio,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		ImageURL:    imageURL,
		UserID:      userID,
		Latitude:    lat,
		Longitude:   lng,
	}, nil
}

// parseCoordinate accepts any finite decimal; range checks are left to the dashboard.
func parseCoordinate(v, field string) (float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, errBadRequest(field + " is required")
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errBadRequest(field + " must be a number")
	}
	return f, nil
}
