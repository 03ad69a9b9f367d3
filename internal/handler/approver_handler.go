package handler

import (
	"net/http"

	"github.com/ahmadqo/event-certificate-service/internal/model"
	"github.com/ahmadqo/event-certificate-service/internal/response"
	"github.com/ahmadqo/event-certificate-service/internal/service"
	"github.com/ahmadqo/event-certificate-service/internal/utils"
	"github.com/go-chi/chi/v5"
)

type ApproverHandler struct {
	svc service.ApproverService
}

func NewApproverHandler(svc service.ApproverService) *ApproverHandler {
	return &ApproverHandler{svc: svc}
}

// List
// @Summary      List approvers
// @Tags         approvers
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /approvers [get]
func (h *ApproverHandler) List(w http.ResponseWriter, r *http.Request) {
	approvers, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, r, err, "Gagal mengambil data approver")
		return
	}

	response.Success(w, "Data approver berhasil diambil", approvers)
}

// Create registers a new approver, who immediately becomes the active signer
// @Summary      Create approver
// @Tags         approvers
// @Accept       json
// @Produce      json
// @Param        request  body      model.CreateApproverRequest  true  "Approver data"
// @Security     BearerAuth
// @Success      201      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /approvers [post]
func (h *ApproverHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateApproverRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Format request tidak valid", err.Error())
		return
	}

	approver, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err, "Gagal membuat approver")
		return
	}

	response.Created(w, "Approver berhasil dibuat dan diaktifkan", approver)
}

// Activate
// @Summary      Activate approver
// @Description  Deactivates every other approver of the role
// @Tags         approvers
// @Produce      json
// @Param        id   path      string  true  "Approver ID"
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /approvers/{id}/activate [post]
func (h *ApproverHandler) Activate(w http.ResponseWriter, r *http.Request) {
	approver, err := h.svc.Activate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, "Gagal mengaktifkan approver")
		return
	}

	response.Success(w, "Approver berhasil diaktifkan", approver)
}

// Deactivate
// @Summary      Deactivate approver
// @Tags         approvers
// @Produce      json
// @Param        id   path      string  true  "Approver ID"
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /approvers/{id}/deactivate [post]
func (h *ApproverHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	approver, err := h.svc.Deactivate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, "Gagal menonaktifkan approver")
		return
	}

	response.Success(w, "Approver berhasil dinonaktifkan", approver)
}

// UploadSignature
// @Summary      Upload approver signature
// @Description  PNG or JPEG, max 2MB, base64 or data URI
// @Tags         approvers
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Approver ID"
// @Param        request  body      model.UploadSignatureRequest  true  "Signature image"
// @Security     BearerAuth
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /approvers/{id}/signature [post]
func (h *ApproverHandler) UploadSignature(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 4*utils.MaxFileSize)

	var req model.UploadSignatureRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Format request tidak valid", err.Error())
		return
	}

	approver, err := h.svc.UploadSignature(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, err, "Gagal menyimpan tanda tangan")
		return
	}

	response.Success(w, "Tanda tangan berhasil disimpan", approver)
}

// Current shows the signer that would be stamped on the next certificate
// @Summary      Current signer
// @Tags         approvers
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=model.ApproverInfo}
// @Router       /approvers/current [get]
func (h *ApproverHandler) Current(w http.ResponseWriter, r *http.Request) {
	response.Success(w, "Approver aktif berhasil diambil", h.svc.Resolve(r.Context()))
}
