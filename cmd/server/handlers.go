package main

import (
	"bytes"
	"context"
	"embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/himanishpuri/AccentDNA/pkg/accentdna"
	"github.com/himanishpuri/AccentDNA/pkg/accentdna/audio"
	"github.com/himanishpuri/AccentDNA/pkg/accentdna/report"
	"github.com/himanishpuri/AccentDNA/pkg/logger"
	"github.com/himanishpuri/AccentDNA/pkg/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service accentdna.Service
	config  *ServerConfig
	log     accentdna.Logger
}

// NewServer creates a new server instance
func NewServer(service accentdna.Service, config *ServerConfig, log accentdna.Logger) *Server {
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = 100 << 20
	}
	return &Server{
		service: service,
		config:  config,
		log:     logger.OrDefault(log),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondPage renders the upload page with whatever data is set.
func (s *Server) respondPage(w http.ResponseWriter, statusCode int, data pageData) {
	data.References = newReferenceRows(s.service.References())
	data.Warnings = s.service.ReferenceWarnings()

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		s.log.Errorf("Failed to render page: %v", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	w.Write(buf.Bytes())
}

func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondPage(w, statusCode, pageData{Error: message})
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondPage(w, http.StatusOK, pageData{})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status:     "healthy",
		Time:       time.Now().Format(time.RFC3339),
		References: len(s.service.References()),
	})
}

// handleDetect handles POST /detect with either an "audio" file part or a
// "url" field.
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "Upload is too large")
			return
		}
		s.log.Errorf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}
	defer r.MultipartForm.RemoveAll()

	var (
		rep *accentdna.Report
		err error
	)
	file, header, ferr := r.FormFile("audio")
	pageURL := strings.TrimSpace(r.FormValue("url"))
	switch {
	case ferr == nil:
		defer file.Close()

		upload, serr := utils.SaveUpload(s.config.TempDir, header.Filename, file)
		if serr != nil {
			s.log.Errorf("Failed to save upload: %v", serr)
			s.respondError(w, http.StatusInternalServerError, "Failed to save uploaded file")
			return
		}
		defer upload.Remove()

		s.log.Infof("Detecting accent of uploaded file: %s", header.Filename)
		rep, err = s.service.Detect(ctx, upload.Path)
		if rep != nil {
			rep.Input = header.Filename
		}
	case pageURL != "":
		if !audio.IsRemoteURL(pageURL) {
			s.respondError(w, http.StatusBadRequest, "url must be an http(s) link")
			return
		}
		s.log.Infof("Detecting accent of %s", pageURL)
		rep, err = s.service.DetectURL(ctx, pageURL)
	default:
		s.respondError(w, http.StatusBadRequest, "Choose a recording to upload or paste a video URL")
		return
	}

	if err != nil {
		s.log.Errorf("Detection failed: %v", err)
		s.respondError(w, statusFor(err), "Could not analyze the recording: "+err.Error())
		return
	}

	s.respondPage(w, http.StatusOK, pageData{Report: newReportView(rep, s.spectrogram(rep))})
}

// spectrogram returns the inline PNG of the normalized input, or "" when it
// cannot be drawn.
func (s *Server) spectrogram(rep *accentdna.Report) template.URL {
	var buf bytes.Buffer
	if err := report.EncodeSpectrogram(&buf, rep.Waveform); err != nil {
		s.log.Warnf("Failed to draw spectrogram: %v", err)
		return ""
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, audio.ErrUnsupportedFormat), errors.Is(err, audio.ErrEmptyAudio):
		return http.StatusUnprocessableEntity
	case errors.Is(err, audio.ErrDownloadFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
