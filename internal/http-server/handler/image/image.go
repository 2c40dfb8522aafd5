package image

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"image-analyzer/internal/config"
	"image-analyzer/internal/domain"
	"image-analyzer/internal/http-server/handler/image/dto"
	repoimage "image-analyzer/internal/repository/image"
	"image-analyzer/internal/usecase/ingest"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/wb-go/wbf/zlog"
)

const maxMemory = 32 << 20

type ImageHandler struct {
	usecase  ingestUsecase
	cfg      *config.Config
	validate *validator.Validate
	logger   *zlog.Zerolog
}

func NewImageHandler(usecase ingestUsecase, cfg *config.Config, logger *zlog.Zerolog) *ImageHandler {
	return &ImageHandler{
		usecase:  usecase,
		cfg:      cfg,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *ImageHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, domain.DefaultMaxUploadSize)

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to parse multipart form")
		h.respondError(w, http.StatusBadRequest, "Invalid request format", nil)
		return
	}

	file, handler, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "File is required", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error().Err(err).Str("filename", handler.Filename).Msg("Failed to read file")
		h.respondError(w, http.StatusInternalServerError, "Failed to read file", err)
		return
	}

	rec, err := h.usecase.IngestFile(ctx, data, handler.Filename)
	if err != nil {
		h.handleIngestError(w, err, handler.Filename)
		return
	}

	h.respondAccepted(w, rec)
}

func (h *ImageHandler) UploadImageURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.UploadURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "A valid url is required", nil)
		return
	}

	rec, err := h.usecase.IngestURL(ctx, req.URL)
	if err != nil {
		h.handleIngestError(w, err, req.URL)
		return
	}

	h.respondAccepted(w, rec)
}

func (h *ImageHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := chi.URLParam(r, "id")
	if id == "" {
		h.respondError(w, http.StatusBadRequest, "Image ID is required", nil)
		return
	}

	rec, err := h.usecase.GetImage(ctx, id)
	if err != nil {
		if errors.Is(err, repoimage.ErrImageNotFound) {
			h.respondError(w, http.StatusNotFound, "Image not found", nil)
			return
		}
		h.logger.Error().Err(err).Str("image_id", id).Msg("Failed to get image")
		h.respondError(w, http.StatusInternalServerError, "Failed to get image", err)
		return
	}

	h.respondJSON(w, http.StatusOK, dto.FromRecord(rec))
}

func (h *ImageHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	records, total, err := h.usecase.ListImages(ctx, limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list images")
		h.respondError(w, http.StatusInternalServerError, "Failed to list images", err)
		return
	}

	images := make([]dto.ImageResponse, 0, len(records))
	for i := range records {
		images = append(images, dto.FromRecord(&records[i]))
	}

	if limit <= 0 {
		limit = domain.DefaultListLimit
	}

	h.respondJSON(w, http.StatusOK, dto.ListResponse{
		Images: images,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// GetConfig exposes the read-only validation and analysis thresholds.
func (h *ImageHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, dto.ConfigResponse{
		MaxFileSizeMB:      h.cfg.Validation.MaxFileSizeMB,
		MinWidth:           h.cfg.Validation.MinWidth,
		MinHeight:          h.cfg.Validation.MinHeight,
		MaxWidth:           h.cfg.Validation.MaxWidth,
		MaxHeight:          h.cfg.Validation.MaxHeight,
		AllowedFormats:     h.cfg.Validation.AllowedFormats,
		MinAspectRatio:     h.cfg.Validation.MinAspectRatio,
		MaxAspectRatio:     h.cfg.Validation.MaxAspectRatio,
		DuplicateThreshold: h.cfg.Analysis.DuplicateThreshold,
		MinQualityScore:    h.cfg.Analysis.MinQualityScore,
	})
}

func (h *ImageHandler) respondAccepted(w http.ResponseWriter, rec *domain.ImageRecord) {
	h.logger.Info().
		Str("image_id", rec.ID).
		Str("filename", rec.Filename).
		Str("status", string(rec.Status)).
		Msg("Image accepted")

	h.respondJSON(w, http.StatusAccepted, dto.UploadResponse{
		ID:       rec.ID,
		Filename: rec.Filename,
		Status:   string(rec.Status),
		Warnings: rec.ValidationWarnings,
	})
}

func (h *ImageHandler) handleIngestError(w http.ResponseWriter, err error, source string) {
	var rejection *ingest.RejectionError
	if errors.As(err, &rejection) {
		h.logger.Warn().Str("source", source).Strs("problems", rejection.Problems).Msg("Image rejected")
		h.respondJSON(w, http.StatusBadRequest, dto.RejectionResponse{
			Error:    "validation failed",
			Problems: rejection.Problems,
		})
		return
	}

	h.logger.Error().Err(err).Str("source", source).Msg("Ingestion failed")
	h.respondError(w, http.StatusInternalServerError, "Failed to ingest image", err)
}

func (h *ImageHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *ImageHandler) respondError(w http.ResponseWriter, status int, message string, err error) {
	response := dto.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	}

	if err != nil {
		response.Details = err.Error()
	}

	h.respondJSON(w, status, response)
}
