package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/ahmadqo/event-certificate-service/internal/middleware"
	"github.com/ahmadqo/event-certificate-service/internal/model"
	"github.com/ahmadqo/event-certificate-service/internal/response"
	"github.com/ahmadqo/event-certificate-service/internal/service"
	"github.com/ahmadqo/event-certificate-service/internal/utils"
	"github.com/go-chi/chi/v5"
)

type CertificateHandler struct {
	svc   service.CertificateService
	regen service.RegenerationService
}

func NewCertificateHandler(svc service.CertificateService, regen service.RegenerationService) *CertificateHandler {
	return &CertificateHandler{svc: svc, regen: regen}
}

// Create creates a draft certificate when a participant completes an event
// @Summary      Create a certificate
// @Description  Completion trigger. Returns the existing certificate when the participant already has one for the event.
// @Tags         certificates
// @Accept       json
// @Produce      json
// @Param        request  body      model.CreateCertificateRequest  true  "Completion data"
// @Security     BearerAuth
// @Success      200      {object}  response.Response
// @Success      201      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /certificates [post]
func (h *CertificateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateCertificateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Format request tidak valid", err.Error())
		return
	}

	if req.IssuerID == "" {
		req.IssuerID = middleware.GetUserIDFromContext(r.Context())
	}

	cert, created, err := h.svc.CreateFromCompletion(r.Context(), req)
	if err != nil {
		writeError(w, r, err, "Gagal membuat sertifikat")
		return
	}

	if !created {
		response.Success(w, "Sertifikat sudah ada untuk peserta dan event ini", cert)
		return
	}
	response.Created(w, "Sertifikat berhasil dibuat", cert)
}

// GetByID retrieves a certificate with its audit log
// @Summary      Get certificate
// @Tags         certificates
// @Produce      json
// @Param        id   path      string  true  "Certificate ID (CERT-YYYY-NNN)"
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /certificates/{id} [get]
func (h *CertificateHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	cert, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, "Gagal mengambil data sertifikat")
		return
	}

	response.Success(w, "Data sertifikat berhasil diambil", cert)
}

// Download returns the certificate artifact, rendering it first when no buffer exists
// @Summary      Download certificate
// @Tags         certificates
// @Produce      application/pdf
// @Produce      image/png
// @Param        id      path      string  true   "Certificate ID"
// @Param        format  query     string  false  "pdf (default) or image"
// @Security     BearerAuth
// @Success      200     {file}    file    "Certificate artifact"
// @Failure      404     {object}  response.Response
// @Failure      409     {object}  response.Response
// @Failure      502     {object}  response.Response
// @Router       /certificates/{id}/download [get]
func (h *CertificateHandler) Download(w http.ResponseWriter, r *http.Request) {
	format := model.ArtifactFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = model.FormatPDF
	}

	artifact, err := h.svc.Download(r.Context(), chi.URLParam(r, "id"), format,
		middleware.GetUserIDFromContext(r.Context()), middleware.ClientIP(r))
	if err != nil {
		writeError(w, r, err, "Gagal mengambil file sertifikat")
		return
	}

	response.File(w, artifact.ContentType, artifact.FileName, artifact.Data)
}

// Generate renders the certificate artifacts
// @Summary      Generate certificate artifacts
// @Tags         certificates
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true   "Certificate ID"
// @Param        request  body      model.GenerateRequest  false  "Formats, default pdf"
// @Security     BearerAuth
// @Success      200      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      502      {object}  response.Response
// @Router       /certificates/{id}/generate [post]
func (h *CertificateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req model.GenerateRequest
	if err := decodeOptional(r, &req); err != nil {
		response.BadRequest(w, "Format request tidak valid", err.Error())
		return
	}

	cert, err := h.svc.Generate(r.Context(), chi.URLParam(r, "id"), req.Formats)
	if err != nil {
		writeError(w, r, err, "Gagal generate sertifikat")
		return
	}

	response.Success(w, "Sertifikat berhasil di-generate", cert)
}

// Cleanup clears the cached artifacts of a certificate
// @Summary      Clear certificate artifacts
// @Tags         certificates
// @Produce      json
// @Param        id   path      string  true  "Certificate ID"
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /certificates/{id}/cleanup [post]
func (h *CertificateHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Cleanup(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err, "Gagal membersihkan file sertifikat")
		return
	}

	response.Success(w, "File sertifikat berhasil dibersihkan", nil)
}

// UpdateStatus moves a certificate forward in its lifecycle or revokes it
// @Summary      Update certificate status
// @Tags         certificates
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Certificate ID"
// @Param        request  body      model.UpdateStatusRequest  true  "Target status"
// @Security     BearerAuth
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /certificates/{id}/status [patch]
func (h *CertificateHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateStatusRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Format request tidak valid", err.Error())
		return
	}

	cert, err := h.svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req,
		middleware.GetUserIDFromContext(r.Context()), middleware.ClientIP(r))
	if err != nil {
		writeError(w, r, err, "Gagal mengubah status sertifikat")
		return
	}

	response.Success(w, "Status sertifikat berhasil diubah", cert)
}

// ForceRegenerate clears and re-renders a certificate
// @Summary      Force regenerate certificate
// @Tags         certificates
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true   "Certificate ID"
// @Param        request  body      model.GenerateRequest  false  "Formats, default pdf"
// @Security     BearerAuth
// @Success      200      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      502      {object}  response.Response
// @Router       /certificates/{id}/force-regenerate [post]
func (h *CertificateHandler) ForceRegenerate(w http.ResponseWriter, r *http.Request) {
	var req model.GenerateRequest
	if err := decodeOptional(r, &req); err != nil {
		response.BadRequest(w, "Format request tidak valid", err.Error())
		return
	}

	cert, err := h.regen.ForceRegenerate(r.Context(), chi.URLParam(r, "id"), req.Formats,
		middleware.GetUserIDFromContext(r.Context()), middleware.ClientIP(r))
	if err != nil {
		writeError(w, r, err, "Gagal regenerate sertifikat")
		return
	}

	response.Success(w, "Sertifikat berhasil di-regenerate", cert)
}

// Stats returns certificate counts per status
// @Summary      Certificate statistics
// @Tags         certificates
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /certificates/stats [get]
func (h *CertificateHandler) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.StatusCounts(r.Context())
	if err != nil {
		writeError(w, r, err, "Gagal mengambil statistik sertifikat")
		return
	}

	response.Success(w, "Statistik sertifikat berhasil diambil", counts)
}

// ListByParticipant
// @Summary      Certificates of a participant
// @Tags         certificates
// @Produce      json
// @Param        id   path      string  true  "Participant ID"
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /participants/{id}/certificates [get]
func (h *CertificateHandler) ListByParticipant(w http.ResponseWriter, r *http.Request) {
	certs, err := h.svc.ListByParticipant(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, "Gagal mengambil data sertifikat")
		return
	}

	response.Success(w, "Data sertifikat berhasil diambil", certs)
}

// ListByEvent
// @Summary      Certificates of an event
// @Tags         certificates
// @Produce      json
// @Param        id   path      string  true  "Event ID"
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /events/{id}/certificates [get]
func (h *CertificateHandler) ListByEvent(w http.ResponseWriter, r *http.Request) {
	certs, err := h.svc.ListByEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, "Gagal mengambil data sertifikat")
		return
	}

	response.Success(w, "Data sertifikat berhasil diambil", certs)
}

// Bulk runs a bulk operation. Partial failures are reported inside the result.
// @Summary      Bulk certificate operation
// @Description  operation: regenerate_all, regenerate_event, cleanup_all
// @Tags         bulk
// @Accept       json
// @Produce      json
// @Param        request  body      model.BulkRequest  true  "Bulk request"
// @Security     BearerAuth
// @Success      200      {object}  response.Response{data=model.BulkReport}
// @Failure      400      {object}  response.Response
// @Router       /certificates/bulk [post]
func (h *CertificateHandler) Bulk(w http.ResponseWriter, r *http.Request) {
	var req model.BulkRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Format request tidak valid", err.Error())
		return
	}

	report, err := h.regen.RunBulk(r.Context(), req)
	if err != nil {
		writeError(w, r, err, "Gagal menjalankan operasi bulk")
		return
	}

	response.Success(w, "Operasi bulk selesai", report)
}

// RegenerateAll
// @Summary      Regenerate all generated and issued certificates
// @Tags         bulk
// @Accept       json
// @Produce      json
// @Param        request  body      model.RegenerateRequest  false  "Formats and batch size"
// @Security     BearerAuth
// @Success      200      {object}  response.Response{data=model.BulkReport}
// @Router       /certificates/regenerate [post]
func (h *CertificateHandler) RegenerateAll(w http.ResponseWriter, r *http.Request) {
	var req model.RegenerateRequest
	if err := decodeOptional(r, &req); err != nil {
		response.BadRequest(w, "Format request tidak valid", err.Error())
		return
	}

	report, err := h.regen.RegenerateAll(r.Context(), req.Formats, req.BatchSize)
	if err != nil {
		writeError(w, r, err, "Gagal regenerate sertifikat")
		return
	}

	response.Success(w, "Regenerate sertifikat selesai", report)
}

// RegenerateEvent
// @Summary      Regenerate certificates of an event
// @Tags         bulk
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true   "Event ID"
// @Param        request  body      model.RegenerateRequest  false  "Formats and batch size"
// @Security     BearerAuth
// @Success      200      {object}  response.Response{data=model.BulkReport}
// @Router       /events/{id}/certificates/regenerate [post]
func (h *CertificateHandler) RegenerateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.RegenerateRequest
	if err := decodeOptional(r, &req); err != nil {
		response.BadRequest(w, "Format request tidak valid", err.Error())
		return
	}

	report, err := h.regen.RegenerateByEvent(r.Context(), chi.URLParam(r, "id"), req.Formats, req.BatchSize)
	if err != nil {
		writeError(w, r, err, "Gagal regenerate sertifikat event")
		return
	}

	response.Success(w, "Regenerate sertifikat event selesai", report)
}

// Verify checks a certificate publicly via its certificate ID
// @Summary      Verify a certificate
// @Description  Public endpoint used by the QR code on the certificate
// @Tags         public
// @Produce      json
// @Param        certificateId  path      string  true  "Certificate ID"
// @Success      200            {object}  model.VerifyResponse
// @Failure      404            {object}  response.VerifyFailure
// @Failure      410            {object}  response.VerifyFailure
// @Failure      500            {object}  response.VerifyFailure
// @Router       /verify/{certificateId} [get]
func (h *CertificateHandler) Verify(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Verify(r.Context(), chi.URLParam(r, "certificateId"), middleware.ClientIP(r))
	switch {
	case err == nil:
		response.Write(w, http.StatusOK, result)
	case errors.Is(err, service.ErrValidation):
		response.VerificationFailed(w, http.StatusBadRequest, response.CodeVerificationError, "Certificate ID wajib diisi")
	case errors.Is(err, service.ErrRevoked):
		response.VerificationFailed(w, http.StatusNotFound, response.CodeCertificateNotFound, "Sertifikat telah dicabut")
	case errors.Is(err, service.ErrNotFound):
		response.VerificationFailed(w, http.StatusNotFound, response.CodeCertificateNotFound, "Sertifikat tidak ditemukan")
	case errors.Is(err, service.ErrExpired):
		response.VerificationFailed(w, http.StatusGone, response.CodeCertificateExpired, "Sertifikat sudah kedaluwarsa")
	default:
		writeVerifyError(w, r, err)
	}
}

func writeVerifyError(w http.ResponseWriter, r *http.Request, err error) {
	logError(r, err, "Verification failed")
	response.VerificationFailed(w, http.StatusInternalServerError, response.CodeVerificationError, "Gagal memverifikasi sertifikat")
}

// decodeOptional body kosong dianggap request default
func decodeOptional(r *http.Request, dst interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := utils.DecodeJSON(r, dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
