package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmadqo/event-certificate-service/internal/config"
	"github.com/ahmadqo/event-certificate-service/internal/model"
	"github.com/ahmadqo/event-certificate-service/internal/render"
	"github.com/ahmadqo/event-certificate-service/internal/render/rendertest"
	"github.com/ahmadqo/event-certificate-service/internal/repository/memory"
	"github.com/ahmadqo/event-certificate-service/internal/service"
	"github.com/ahmadqo/event-certificate-service/internal/utils"
)

const testSecret = "test-secret"

type testServer struct {
	t      *testing.T
	engine *rendertest.Engine
	h      http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	directory := memory.NewDirectoryStore()
	users := memory.NewUserStore()
	certs := memory.NewCertificateStore()
	approvers := memory.NewApproverStore()
	engine := rendertest.New()

	directory.PutEvent(model.Event{
		ID:        "evt-1",
		Title:     "Cloud Native Workshop",
		StartDate: time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC),
		Venue:     "Auditorium A",
		Mode:      "offline",
		Skills:    []string{"Kubernetes", "Go"},
	})
	directory.PutParticipant(model.Participant{ID: "p-1", Name: "Siti Nurhaliza", Email: "siti@example.com"})
	directory.PutParticipant(model.Participant{ID: "p-2", Name: "Rudi Hartono", Email: "rudi@example.com"})
	users.Put(model.User{ID: "u-admin", Name: "Admin", Role: model.RoleAdmin, IsActive: true})

	renderer, err := render.NewRenderer(engine, render.Options{Timeout: 5 * time.Second})
	require.NoError(t, err)

	approverCfg := config.ApproverConfig{TitlePrefix: "Dr.", FallbackName: "Head of Department", FallbackDepartment: "Academic Affairs"}
	approverSvc := service.NewApproverService(approvers, approverCfg)
	certSvc := service.NewCertificateService(certs, directory, directory.Events(), users,
		approverSvc, utils.NewQREncoder(128), renderer, nil, "https://certs.example.com")
	regenSvc := service.NewRegenerationService(certs, certSvc, config.BulkConfig{BatchSize: 2})

	router := NewRouter(NewCertificateHandler(certSvc, regenSvc), NewApproverHandler(approverSvc), testSecret, zerolog.Nop())

	return &testServer{t: t, engine: engine, h: router.Setup()}
}

func (s *testServer) token(userID string, role model.Role) string {
	s.t.Helper()
	tok, err := utils.GenerateAccessToken(model.JWTClaims{UserID: userID, Role: string(role)}, testSecret, time.Hour)
	require.NoError(s.t, err)
	return tok
}

func (s *testServer) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	s.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

// createCertificate membuat sertifikat lewat API dan mengembalikan certificate_id
func (s *testServer) createCertificate(participantID string, extra map[string]interface{}) string {
	s.t.Helper()
	req := map[string]interface{}{"participant_id": participantID, "event_id": "evt-1"}
	for k, v := range extra {
		req[k] = v
	}
	rec := s.do(http.MethodPost, "/api/v1/certificates", req, s.token("u-admin", model.RoleAdmin))
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())

	data := decode(s.t, rec)["data"].(map[string]interface{})
	return data["certificate_id"].(string)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/health", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["success"])
}

func TestAuth_RoutesRequireTokenAndRole(t *testing.T) {
	s := newTestServer(t)
	participant := s.token("p-1", model.RoleParticipant)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"no token", http.MethodGet, "/api/v1/certificates/stats", "", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/api/v1/certificates/stats", "not-a-jwt", http.StatusUnauthorized},
		{"participant reads stats", http.MethodGet, "/api/v1/certificates/stats", participant, http.StatusOK},
		{"participant cannot create", http.MethodPost, "/api/v1/certificates", participant, http.StatusForbidden},
		{"participant cannot bulk", http.MethodPost, "/api/v1/certificates/bulk", participant, http.StatusForbidden},
		{"coordinator cannot bulk", http.MethodPost, "/api/v1/certificates/regenerate", s.token("u-2", model.RoleCoordinator), http.StatusForbidden},
		{"participant cannot manage approvers", http.MethodGet, "/api/v1/approvers", participant, http.StatusForbidden},
		{"verify is public", http.MethodGet, "/api/v1/verify/CERT-1999-999", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt.method, tt.path, nil, tt.token)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestCreate_IsIdempotent(t *testing.T) {
	s := newTestServer(t)
	admin := s.token("u-admin", model.RoleAdmin)

	id := s.createCertificate("p-1", nil)

	rec := s.do(http.MethodPost, "/api/v1/certificates",
		map[string]string{"participant_id": "p-1", "event_id": "evt-1"}, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, id, data["certificate_id"])
	assert.Equal(t, "draft", data["status"])
}

func TestCreate_Errors(t *testing.T) {
	s := newTestServer(t)
	admin := s.token("u-admin", model.RoleAdmin)

	rec := s.do(http.MethodPost, "/api/v1/certificates", map[string]string{"event_id": "evt-1"}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errs := decode(t, rec)["errors"].(map[string]interface{})
	assert.Contains(t, errs, "participant_id")

	rec = s.do(http.MethodPost, "/api/v1/certificates",
		map[string]string{"participant_id": "ghost", "event_id": "evt-1"}, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/certificates", map[string]string{"unknown": "x"}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerify_Valid(t *testing.T) {
	s := newTestServer(t)
	admin := s.token("u-admin", model.RoleAdmin)
	id := s.createCertificate("p-1", nil)

	rec := s.do(http.MethodPost, "/api/v1/certificates/"+id+"/generate", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/v1/verify/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["valid"])
	cert := body["certificate"].(map[string]interface{})
	assert.Equal(t, id, cert["certificateId"])
	assert.Equal(t, float64(1), cert["verificationCount"])
	assert.Equal(t, "Siti Nurhaliza", cert["participant"].(map[string]interface{})["name"])
	security := cert["security"].(map[string]interface{})
	assert.Equal(t, "https://certs.example.com/verify/"+id, security["verificationUrl"])

	rec = s.do(http.MethodGet, "/api/v1/verify/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decode(t, rec)["certificate"].(map[string]interface{})["verificationCount"])
}

func TestVerify_Failures(t *testing.T) {
	s := newTestServer(t)
	admin := s.token("u-admin", model.RoleAdmin)

	expired := s.createCertificate("p-1", map[string]interface{}{"expiry_date": "2000-01-01"})
	revoked := s.createCertificate("p-2", nil)
	rec := s.do(http.MethodPatch, "/api/v1/certificates/"+revoked+"/status",
		map[string]string{"status": "revoked", "reason": "duplikat"}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	tests := []struct {
		name string
		id   string
		want int
		code string
	}{
		{"unknown", "CERT-1999-999", http.StatusNotFound, "CERTIFICATE_NOT_FOUND"},
		{"expired", expired, http.StatusGone, "CERTIFICATE_EXPIRED"},
		{"revoked", revoked, http.StatusNotFound, "CERTIFICATE_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodGet, "/api/v1/verify/"+tt.id, nil, "")
			assert.Equal(t, tt.want, rec.Code)

			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, false, body["valid"])
			assert.Equal(t, tt.code, body["code"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestDownload(t *testing.T) {
	s := newTestServer(t)
	token := s.token("u-admin", model.RoleAdmin)
	id := s.createCertificate("p-1", nil)

	rec := s.do(http.MethodGet, "/api/v1/certificates/"+id+"/download", nil, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="`+id+`.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = s.do(http.MethodGet, "/api/v1/certificates/"+id+"/download?format=image", nil, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = s.do(http.MethodGet, "/api/v1/certificates/"+id+"/download?format=docx", nil, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/certificates/"+id, nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["download_count"])
}

func TestGenerate_RenderFailureIsBadGateway(t *testing.T) {
	s := newTestServer(t)
	id := s.createCertificate("p-1", nil)
	s.engine.FailFor[id] = true

	rec := s.do(http.MethodPost, "/api/v1/certificates/"+id+"/generate", nil, s.token("u-admin", model.RoleAdmin))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "RENDER_ENGINE_ERROR", decode(t, rec)["code"])
}

func TestRevokedCertificateRejectsChanges(t *testing.T) {
	s := newTestServer(t)
	admin := s.token("u-admin", model.RoleAdmin)
	id := s.createCertificate("p-1", nil)

	rec := s.do(http.MethodPatch, "/api/v1/certificates/"+id+"/status", map[string]string{"status": "revoked"}, admin)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/certificates/"+id+"/generate", nil, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPatch, "/api/v1/certificates/"+id+"/status", map[string]string{"status": "issued"}, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/certificates/"+id+"/download", nil, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestBulk(t *testing.T) {
	s := newTestServer(t)
	admin := s.token("u-admin", model.RoleAdmin)

	for _, p := range []string{"p-1", "p-2"} {
		id := s.createCertificate(p, nil)
		rec := s.do(http.MethodPost, "/api/v1/certificates/"+id+"/generate", nil, admin)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := s.do(http.MethodPost, "/api/v1/certificates/bulk", map[string]string{"operation": "shred_all"}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/certificates/bulk",
		map[string]interface{}{"operation": "regenerate_all", "batchSize": 51}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/certificates/bulk", map[string]string{"operation": "regenerate_all"}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, float64(2), report["totalCertificates"])
	assert.Equal(t, float64(2), report["processed"])
	assert.Equal(t, float64(100), report["successRate"])

	rec = s.do(http.MethodPost, "/api/v1/events/evt-1/certificates/regenerate", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report = decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, float64(2), report["processed"])

	rec = s.do(http.MethodGet, "/api/v1/events/evt-1/certificates", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["data"], 2)
}

func TestApprovers(t *testing.T) {
	s := newTestServer(t)
	admin := s.token("u-admin", model.RoleAdmin)

	rec := s.do(http.MethodGet, "/api/v1/approvers/current", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Dr. Head of Department", decode(t, rec)["data"].(map[string]interface{})["name"])

	rec = s.do(http.MethodPost, "/api/v1/approvers", map[string]string{"name": ""}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/approvers",
		map[string]string{"name": "Rina Wijaya", "email": "rina@example.com", "department": "Engineering"}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	approverID := decode(t, rec)["data"].(map[string]interface{})["id"].(string)

	rec = s.do(http.MethodGet, "/api/v1/approvers/current", nil, admin)
	assert.Equal(t, "Dr. Rina Wijaya", decode(t, rec)["data"].(map[string]interface{})["name"])

	rec = s.do(http.MethodPost, "/api/v1/approvers/"+approverID+"/signature",
		map[string]string{"image_base64": "bm90IGFuIGltYWdl"}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/approvers/not-a-uuid/activate", nil, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/approvers/00000000-0000-0000-0000-000000000001/activate", nil, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/approvers/"+approverID+"/deactivate", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["data"].(map[string]interface{})["is_active"])

	rec = s.do(http.MethodGet, "/api/v1/approvers", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["data"], 1)
}
