package router

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/lessonhub/pkg/helpers"
	"github.com/oksasatya/lessonhub/pkg/mailer"
	tpl "github.com/oksasatya/lessonhub/pkg/mailer/templates"
	"github.com/oksasatya/lessonhub/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

type result struct {
	Code   int
	Header http.Header
	Body   envelope
	Token  *http.Cookie
}

func (r result) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Body.Data, v))
}

type client struct {
	t      *testing.T
	engine *gin.Engine
}

func newClient(t *testing.T, app *testApp) *client {
	t.Helper()
	engine, err := New(app.Container)
	require.NoError(t, err)
	return &client{t: t, engine: engine}
}

func (cl *client) do(req *http.Request, token string) result {
	cl.t.Helper()
	if token != "" {
		req.AddCookie(&http.Cookie{Name: helpers.SessionCookieName, Value: token})
	}
	w := httptest.NewRecorder()
	cl.engine.ServeHTTP(w, req)

	res := result{Code: w.Code, Header: w.Header()}
	_ = json.Unmarshal(w.Body.Bytes(), &res.Body)
	for _, ck := range w.Result().Cookies() {
		if ck.Name == helpers.SessionCookieName {
			res.Token = ck
		}
	}
	return res
}

func (cl *client) json(method, path string, body any, token string) result {
	cl.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(cl.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return cl.do(req, token)
}

func (cl *client) upload(token string, fields map[string]string, fileName, contentType string, content []byte) result {
	cl.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(cl.t, mw.WriteField(k, v))
	}
	if fileName != "" {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(cl.t, err)
		_, err = part.Write(content)
		require.NoError(cl.t, err)
	}
	require.NoError(cl.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/materials", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return cl.do(req, token)
}

func (cl *client) register(name, email string) string {
	cl.t.Helper()
	res := cl.json(http.MethodPost, "/api/auth/register", map[string]string{
		"name": name, "email": email, "password": "s3cret-pass",
	}, "")
	require.Equal(cl.t, http.StatusCreated, res.Code)
	require.NotNil(cl.t, res.Token)
	return res.Token.Value
}

func TestAccountLifecycle(t *testing.T) {
	app := newTestApp()
	cl := newClient(t, app)

	res := cl.json(http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Ana", "email": "Ana@School.test", "password": "s3cret-pass", "institution": "Riverside High",
	}, "")
	require.Equal(t, http.StatusCreated, res.Code)
	require.NotNil(t, res.Token)
	assert.True(t, res.Token.HttpOnly)
	assert.Equal(t, "/", res.Token.Path)
	assert.Equal(t, http.SameSiteLaxMode, res.Token.SameSite)

	var created struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	res.decode(t, &created)
	assert.Equal(t, "ana@school.test", created.Email)
	assert.Equal(t, "member", created.Role)
	assert.NotContains(t, string(res.Body.Data), "hashed:")
	assert.Equal(t, 1, app.publisher.count(), "welcome email queued")

	dup := cl.json(http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Ana again", "email": "ana@school.test", "password": "another-pass",
	}, "")
	assert.Equal(t, http.StatusConflict, dup.Code)
	assert.Nil(t, dup.Token)

	wrong := cl.json(http.MethodPost, "/api/auth/login", map[string]string{
		"email": "ana@school.test", "password": "nope-nope",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	unknown := cl.json(http.MethodPost, "/api/auth/login", map[string]string{
		"email": "nobody@school.test", "password": "nope-nope",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrong.Body.Message, unknown.Body.Message)

	login := cl.json(http.MethodPost, "/api/auth/login", map[string]string{
		"email": "ANA@school.test", "password": "s3cret-pass",
	}, "")
	require.Equal(t, http.StatusOK, login.Code)
	require.NotNil(t, login.Token)
	token := login.Token.Value

	profile := cl.json(http.MethodGet, "/api/profile", nil, token)
	require.Equal(t, http.StatusOK, profile.Code)
	var me struct {
		Name        string `json:"name"`
		Institution string `json:"institution"`
	}
	profile.decode(t, &me)
	assert.Equal(t, "Ana", me.Name)
	assert.Equal(t, "Riverside High", me.Institution)

	assert.Equal(t, http.StatusUnauthorized, cl.json(http.MethodGet, "/api/profile", nil, "").Code)
	assert.Equal(t, http.StatusOK, cl.json(http.MethodGet, "/api/auth/verify", nil, token).Code)

	for i := 0; i < 2; i++ {
		out := cl.json(http.MethodPost, "/api/auth/logout", nil, "")
		assert.Equal(t, http.StatusOK, out.Code)
		require.NotNil(t, out.Token)
		assert.Empty(t, out.Token.Value)
		assert.Equal(t, -1, out.Token.MaxAge)
	}
}

func TestProfileUpdateAndPasswordChange(t *testing.T) {
	app := newTestApp()
	cl := newClient(t, app)
	token := cl.register("Ana", "ana@school.test")

	res := cl.json(http.MethodPut, "/api/profile", map[string]string{"institution": "Hillside"}, token)
	require.Equal(t, http.StatusOK, res.Code)
	var me struct {
		Name        string `json:"name"`
		Institution string `json:"institution"`
	}
	res.decode(t, &me)
	assert.Equal(t, "Ana", me.Name)
	assert.Equal(t, "Hillside", me.Institution)

	bad := cl.json(http.MethodPut, "/api/profile/password", map[string]string{
		"current_password": "wrong-one", "new_password": "brand-new-pass",
	}, token)
	assert.Equal(t, http.StatusUnauthorized, bad.Code)

	short := cl.json(http.MethodPut, "/api/profile/password", map[string]string{
		"current_password": "s3cret-pass", "new_password": "abc",
	}, token)
	assert.Equal(t, http.StatusBadRequest, short.Code)
	assert.Contains(t, string(short.Body.Error), "new_password")

	ok := cl.json(http.MethodPut, "/api/profile/password", map[string]string{
		"current_password": "s3cret-pass", "new_password": "brand-new-pass",
	}, token)
	require.Equal(t, http.StatusOK, ok.Code)

	app.publisher.mu.Lock()
	last := app.publisher.jobs[len(app.publisher.jobs)-1].(mailer.EmailJob)
	app.publisher.mu.Unlock()
	assert.Equal(t, tpl.PasswordChanged, last.Template)
	assert.Equal(t, "ana@school.test", last.To)

	assert.Equal(t, http.StatusOK, cl.json(http.MethodPost, "/api/auth/login", map[string]string{
		"email": "ana@school.test", "password": "brand-new-pass",
	}, "").Code)
}

func TestRegisterValidation(t *testing.T) {
	cl := newClient(t, newTestApp())

	res := cl.json(http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Ana", "email": "not-an-email", "password": "abc",
	}, "")
	require.Equal(t, http.StatusBadRequest, res.Code)
	var details map[string]string
	require.NoError(t, json.Unmarshal(res.Body.Error, &details))
	assert.Equal(t, "must be a valid email", details["email"])
	assert.Equal(t, "must be at least 6 characters and at most 72 bytes long", details["password"])
}

func TestPasswordsOverBcryptLimitAreRejected(t *testing.T) {
	app := newTestApp()
	app.Hasher = helpers.NewPasswordHasher()
	cl := newClient(t, app)

	// 40 characters, 80 bytes
	long := strings.Repeat("é", 40)

	res := cl.json(http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Ana", "email": "ana@school.test", "password": long,
	}, "")
	require.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, string(res.Body.Error), "password")

	token := cl.register("Ana", "ana@school.test")
	res = cl.json(http.MethodPut, "/api/profile/password", map[string]string{
		"current_password": "s3cret-pass", "new_password": long,
	}, token)
	require.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, string(res.Body.Error), "new_password")
}

func TestAuthAttemptsAreRateLimited(t *testing.T) {
	cl := newClient(t, newTestApp())

	creds := map[string]string{"email": "ana@school.test", "password": "nope-nope"}
	for i := 0; i < 9; i++ {
		assert.Equal(t, http.StatusUnauthorized, cl.json(http.MethodPost, "/api/auth/login", creds, "").Code)
	}
	// register and login draw from the same bucket
	assert.Equal(t, http.StatusBadRequest, cl.json(http.MethodPost, "/api/auth/register", map[string]string{}, "").Code)

	res := cl.json(http.MethodPost, "/api/auth/login", creds, "")
	assert.Equal(t, http.StatusTooManyRequests, res.Code)
	assert.Equal(t, "10", res.Header.Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", res.Header.Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, res.Header.Get("Retry-After"))

	// other routes are not limited
	assert.Equal(t, http.StatusOK, cl.json(http.MethodPost, "/api/auth/logout", nil, "").Code)
}

func TestMaterialOwnership(t *testing.T) {
	app := newTestApp()
	cl := newClient(t, app)
	ana := cl.register("Ana", "ana@school.test")
	bob := cl.register("Bob", "bob@school.test")

	up := cl.upload(ana, map[string]string{
		"title": "Fractions", "subject": "Math", "grade": "5", "difficulty": "intermediate",
	}, "fractions.txt", "text/plain; charset=utf-8", []byte("Halves and quarters."))
	require.Equal(t, http.StatusCreated, up.Code, string(up.Body.Error))
	var m struct {
		ID        string `json:"id"`
		OwnerID   string `json:"owner_id"`
		FileURL   string `json:"file_url"`
		HasText   bool   `json:"has_text"`
		IsOwner   bool   `json:"is_owner"`
		Downloads int    `json:"downloads"`
	}
	up.decode(t, &m)
	assert.True(t, m.HasText)
	assert.True(t, m.IsOwner)
	assert.True(t, strings.HasPrefix(m.FileURL, "https://storage.example.test/materials/"+m.OwnerID+"/"))

	var count struct {
		MaterialCount int `json:"material_count"`
	}
	cl.json(http.MethodGet, "/api/users/"+m.OwnerID, nil, "").decode(t, &count)
	assert.Equal(t, 1, count.MaterialCount)

	rename := map[string]string{"title": "Fractions II"}
	assert.Equal(t, http.StatusForbidden, cl.json(http.MethodPut, "/api/materials/"+m.ID, rename, bob).Code)
	assert.Equal(t, http.StatusUnauthorized, cl.json(http.MethodPut, "/api/materials/"+m.ID, rename, "").Code)
	assert.Equal(t, http.StatusNotFound, cl.json(http.MethodPut, "/api/materials/missing", rename, ana).Code)
	assert.Equal(t, http.StatusOK, cl.json(http.MethodPut, "/api/materials/"+m.ID, rename, ana).Code)

	asBob := cl.json(http.MethodGet, "/api/materials/"+m.ID, nil, bob)
	require.Equal(t, http.StatusOK, asBob.Code)
	asBob.decode(t, &m)
	assert.False(t, m.IsOwner)

	anon := cl.json(http.MethodGet, "/api/materials/"+m.ID+"/download", nil, "")
	require.Equal(t, http.StatusOK, anon.Code)
	var dl struct {
		URL string `json:"url"`
	}
	anon.decode(t, &dl)
	assert.Equal(t, m.FileURL, dl.URL)

	assert.Equal(t, http.StatusForbidden, cl.json(http.MethodDelete, "/api/materials/"+m.ID, nil, bob).Code)
	assert.Equal(t, http.StatusOK, cl.json(http.MethodDelete, "/api/materials/"+m.ID, nil, ana).Code)
	assert.Equal(t, http.StatusNotFound, cl.json(http.MethodGet, "/api/materials/"+m.ID, nil, ana).Code)

	cl.json(http.MethodGet, "/api/users/"+m.OwnerID, nil, "").decode(t, &count)
	assert.Equal(t, 0, count.MaterialCount)
}

func TestMaterialUploadValidation(t *testing.T) {
	cl := newClient(t, newTestApp())
	ana := cl.register("Ana", "ana@school.test")

	fields := map[string]string{"title": "Maps", "subject": "Geography"}

	assert.Equal(t, http.StatusUnauthorized, cl.upload("", fields, "maps.pdf", "application/pdf", []byte("%PDF")).Code)
	assert.Equal(t, http.StatusBadRequest, cl.upload(ana, fields, "", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, cl.upload(ana, map[string]string{"subject": "Geography"}, "maps.pdf", "application/pdf", []byte("%PDF")).Code)

	tooBig := cl.upload(ana, fields, "maps.pdf", "application/pdf", bytes.Repeat([]byte("x"), 2<<10))
	assert.Equal(t, http.StatusBadRequest, tooBig.Code)
	assert.Contains(t, string(tooBig.Body.Error), "file")

	badLevel := map[string]string{"title": "Maps", "subject": "Geography", "difficulty": "expert"}
	assert.Equal(t, http.StatusBadRequest, cl.upload(ana, badLevel, "maps.pdf", "application/pdf", []byte("%PDF")).Code)
}

func TestPublicProfileHidesEmailFromOthers(t *testing.T) {
	app := newTestApp()
	cl := newClient(t, app)
	ana := cl.register("Ana", "ana@school.test")
	bob := cl.register("Bob", "bob@school.test")

	var self struct {
		ID string `json:"id"`
	}
	cl.json(http.MethodGet, "/api/profile", nil, ana).decode(t, &self)

	asBob := cl.json(http.MethodGet, "/api/users/"+self.ID, nil, bob)
	require.Equal(t, http.StatusOK, asBob.Code)
	assert.NotContains(t, string(asBob.Body.Data), "ana@school.test")

	asAna := cl.json(http.MethodGet, "/api/users/"+self.ID, nil, ana)
	assert.Contains(t, string(asAna.Body.Data), "ana@school.test")

	assert.Equal(t, http.StatusNotFound, cl.json(http.MethodGet, "/api/users/nobody", nil, "").Code)
}

func TestDraftLessonPlan(t *testing.T) {
	app := newTestApp()
	cl := newClient(t, app)
	ana := cl.register("Ana", "ana@school.test")

	up := cl.upload(ana, map[string]string{"title": "Volcanoes", "subject": "Science"},
		"volcanoes.txt", "text/plain", []byte("Magma rises through the crust."))
	require.Equal(t, http.StatusCreated, up.Code)
	var m struct {
		ID string `json:"id"`
	}
	up.decode(t, &m)
	path := "/api/materials/" + m.ID + "/lesson-plan"

	app.generator.out = []byte(`{"objective":"Explain eruptions","duration_minutes":45,"steps":["intro"],"activities":[{"title":"Model","kind":"project","instructions":"Build one"}]}`)
	res := cl.json(http.MethodPost, path, nil, ana)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, string(res.Body.Data), "Explain eruptions")

	assert.Equal(t, http.StatusUnauthorized, cl.json(http.MethodPost, path, nil, "").Code)

	app.generator.out = []byte(`not json`)
	res = cl.json(http.MethodPost, path, nil, ana)
	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
	assert.Equal(t, "lesson plan service temporarily unavailable", res.Body.Message)

	pdf := cl.upload(ana, map[string]string{"title": "Scan", "subject": "Science"}, "scan.pdf", "application/pdf", []byte("%PDF"))
	pdf.decode(t, &m)
	assert.Equal(t, http.StatusBadRequest, cl.json(http.MethodPost, "/api/materials/"+m.ID+"/lesson-plan", nil, ana).Code)
}

func TestHealth(t *testing.T) {
	cl := newClient(t, newTestApp())
	res := cl.json(http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, res.Code)
	assert.NotEmpty(t, res.Header.Get("X-Request-ID"))
}

func TestNewRejectsIncompleteContainer(t *testing.T) {
	app := newTestApp()
	app.Storage = nil
	_, err := New(app.Container)
	assert.Error(t, err)
}
