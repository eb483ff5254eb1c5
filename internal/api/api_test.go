package api

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"photo_share/internal/db/dbtest"
	"photo_share/internal/domain"
	"photo_share/internal/middleware"
	"photo_share/internal/service"
	"photo_share/internal/session"
	"photo_share/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "0123456789abcdef"

type testApp struct {
	router *gin.Engine
	db     *gorm.DB
	store  session.Store
	root   string
}

func newTestApp(t *testing.T, opts ...func(*Dependencies)) *testApp {
	t.Helper()
	gdb := dbtest.New(t)
	root := t.TempDir()
	st, err := storage.NewLocalStorage(root)
	require.NoError(t, err)

	accounts := service.NewAccountService(gdb).WithHashCost(bcrypt.MinCost)
	gallery := service.NewGalleryService(gdb, nil)
	sessions := session.NewCookieStore(testSecret, time.Hour, false)

	deps := Dependencies{
		DB:             gdb,
		Accounts:       accounts,
		Gallery:        gallery,
		Uploads:        service.NewUploadService(gdb, st, gallery),
		Sessions:       sessions,
		Storage:        st,
		Limiter:        middleware.NewRateLimiter(1000),
		MaxUploadBytes: 1 << 20,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	r, err := NewRouter(deps)
	require.NoError(t, err)
	return &testApp{router: r, db: gdb, store: sessions, root: root}
}

// client keeps cookies between requests like a browser would.
type client struct {
	app     *testApp
	cookies map[string]*http.Cookie
}

func (a *testApp) client() *client {
	return &client{app: a, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.app.router.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 || ck.Value == "" {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return rec
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (c *client) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

type filePart struct {
	filename string
	data     []byte
}

func (c *client) upload(t *testing.T, caption string, file *filePart) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if caption != "" {
		require.NoError(t, mw.WriteField("caption", caption))
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+file.filename+`"`)
		h.Set("Content-Type", "image/png")
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func (c *client) signup(t *testing.T, username, password string) {
	t.Helper()
	rec := c.postForm("/signup", url.Values{"username": {username}, "password": {password}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("Location"))
}

func (c *client) login(t *testing.T, username, password string) {
	t.Helper()
	rec := c.postForm("/login", url.Values{"username": {username}, "password": {password}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/home", rec.Header().Get("Location"))
}

// sessionUser decodes the session cookie the client holds.
func (c *client) sessionUser(t *testing.T) (uint, bool) {
	t.Helper()
	ck, ok := c.cookies["session"]
	if !ok {
		return 0, false
	}
	gc, _ := gin.CreateTestContext(httptest.NewRecorder())
	gc.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	gc.Request.AddCookie(ck)
	id, err := c.app.store.Load(gc)
	return id, err == nil
}

func (a *testApp) user(t *testing.T, username string) domain.User {
	t.Helper()
	var u domain.User
	require.NoError(t, a.db.Where("username = ?", username).First(&u).Error)
	return u
}

func (a *testApp) photoCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, a.db.Model(&domain.Photo{}).Count(&n).Error)
	return n
}

func filesUnder(t *testing.T, root string) []string {
	t.Helper()
	var files []string
	require.NoError(t, filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, p)
		}
		return nil
	}))
	return files
}

func TestIndex_Redirects(t *testing.T) {
	app := newTestApp(t)
	c := app.client()

	rec := c.get("/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	c.signup(t, "alice", "password1")
	c.login(t, "alice", "password1")
	rec = c.get("/")
	assert.Equal(t, "/home", rec.Header().Get("Location"))
}

func TestSignup_FlashOnLoginPage(t *testing.T) {
	app := newTestApp(t)
	c := app.client()
	c.signup(t, "alice", "password1")

	rec := c.get("/login")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Account created, please log in.")

	// Flash messages show once.
	rec = c.get("/login")
	assert.NotContains(t, rec.Body.String(), "Account created")
}

func TestSignup_Duplicate(t *testing.T) {
	app := newTestApp(t)
	c := app.client()
	c.signup(t, "alice", "password1")

	rec := c.postForm("/signup", url.Values{"username": {"alice"}, "password": {"password2"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/signup", rec.Header().Get("Location"))
	assert.Contains(t, c.get("/signup").Body.String(), "Username already taken!")

	var n int64
	require.NoError(t, app.db.Model(&domain.User{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestSignup_InvalidInput(t *testing.T) {
	app := newTestApp(t)
	c := app.client()

	rec := c.postForm("/signup", url.Values{"username": {"alice"}, "password": {"short"}})
	assert.Equal(t, "/signup", rec.Header().Get("Location"))
	assert.Contains(t, c.get("/signup").Body.String(), "password must be 8-72 characters")
}

func TestSignup_InvalidEmail(t *testing.T) {
	app := newTestApp(t)
	c := app.client()

	rec := c.postForm("/signup", url.Values{"username": {"alice"}, "email": {"a@b"}, "password": {"password1"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/signup", rec.Header().Get("Location"))
	assert.Contains(t, c.get("/signup").Body.String(), "Invalid request.")

	var n int64
	require.NoError(t, app.db.Model(&domain.User{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestCredentialForms_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		path string
		form url.Values
	}{
		{"empty login", "/login", url.Values{}},
		{"login without password", "/login", url.Values{"username": {"alice"}}},
		{"empty signup", "/signup", url.Values{}},
		{"signup without username", "/signup", url.Values{"password": {"password1"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)
			c := app.client()

			rec := c.postForm(tt.path, tt.form)
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, tt.path, rec.Header().Get("Location"))
			body := c.get(tt.path).Body.String()
			assert.Contains(t, body, "Invalid request.")
			assert.NotContains(t, body, "Invalid credentials!")
		})
	}
}

func TestFlashCookie_Secure(t *testing.T) {
	for _, secure := range []bool{false, true} {
		app := newTestApp(t, func(d *Dependencies) { d.SecureCookies = secure })
		rec := app.client().postForm("/login", url.Values{"username": {"nobody"}, "password": {"password1"}})

		var flash *http.Cookie
		for _, ck := range rec.Result().Cookies() {
			if ck.Name == flashCookie {
				flash = ck
			}
		}
		require.NotNil(t, flash)
		assert.Equal(t, secure, flash.Secure)
		assert.True(t, flash.HttpOnly)
	}
}

func TestLogin_SetsSessionToUser(t *testing.T) {
	app := newTestApp(t)
	c := app.client()
	c.signup(t, "alice", "password1")
	c.login(t, "alice", "password1")

	id, ok := c.sessionUser(t)
	require.True(t, ok)
	assert.Equal(t, app.user(t, "alice").ID, id)
}

func TestLogin_WrongPasswordLeavesNoSession(t *testing.T) {
	app := newTestApp(t)
	c := app.client()
	c.signup(t, "alice", "password1")

	rec := c.postForm("/login", url.Values{"username": {"alice"}, "password": {"nope-nope"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	_, ok := c.sessionUser(t)
	assert.False(t, ok)
	assert.Contains(t, c.get("/login").Body.String(), "Invalid credentials!")

	rec = c.postForm("/login", url.Values{"username": {"nobody"}, "password": {"password1"}})
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	_, ok = c.sessionUser(t)
	assert.False(t, ok)
}

func TestLogout_ProtectedRouteRedirects(t *testing.T) {
	app := newTestApp(t)
	c := app.client()
	c.signup(t, "alice", "password1")
	c.login(t, "alice", "password1")
	require.Equal(t, http.StatusOK, c.get("/home").Code)

	rec := c.get("/logout")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	_, ok := c.sessionUser(t)
	assert.False(t, ok)

	for _, path := range []string{"/home", "/profile", "/upload"} {
		rec = c.get(path)
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.Equal(t, "/login", rec.Header().Get("Location"), path)
	}
}

func TestLogout_WithoutSession(t *testing.T) {
	app := newTestApp(t)
	rec := app.client().get("/logout")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestProtected_StaleSessionUser(t *testing.T) {
	app := newTestApp(t)
	c := app.client()
	c.signup(t, "alice", "password1")
	c.login(t, "alice", "password1")

	require.NoError(t, app.db.Where("username = ?", "alice").Delete(&domain.User{}).Error)

	rec := c.get("/home")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	_, ok := c.sessionUser(t)
	assert.False(t, ok, "stale session is cleared")
}

func TestUpload_ValidationFailures(t *testing.T) {
	app := newTestApp(t)
	c := app.client()
	c.signup(t, "alice", "password1")
	c.login(t, "alice", "password1")

	tests := []struct {
		name  string
		file  *filePart
		flash string
	}{
		{"no file part", nil, "No file selected!"},
		{"empty filename", &filePart{filename: "", data: nil}, "File name is empty!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := c.upload(t, "cute", tt.file)
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "/upload", rec.Header().Get("Location"))
			assert.Contains(t, c.get("/upload").Body.String(), tt.flash)

			assert.Zero(t, app.photoCount(t))
			assert.Empty(t, filesUnder(t, app.root))
		})
	}
}

func TestUpload_NotMultipart(t *testing.T) {
	app := newTestApp(t)
	c := app.client()
	c.signup(t, "alice", "password1")
	c.login(t, "alice", "password1")

	rec := c.postForm("/upload", url.Values{"caption": {"cute"}})
	assert.Equal(t, "/upload", rec.Header().Get("Location"))
	assert.Zero(t, app.photoCount(t))
}

func TestUpload_StoresPhoto(t *testing.T) {
	app := newTestApp(t)
	c := app.client()
	c.signup(t, "alice", "password1")
	c.login(t, "alice", "password1")

	data := []byte("\x89PNG\r\n\x1a\nfake")
	rec := c.upload(t, "cute", &filePart{filename: "cat.png", data: data})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/home", rec.Header().Get("Location"))

	var photos []domain.Photo
	require.NoError(t, app.db.Find(&photos).Error)
	require.Len(t, photos, 1)
	p := photos[0]
	assert.Equal(t, app.user(t, "alice").ID, p.UserID)
	assert.Equal(t, "cat.png", p.Filename)
	assert.Equal(t, "cute", p.CaptionText())

	files := filesUnder(t, filepath.Join(app.root, "alice"))
	require.Len(t, files, 1)
	onDisk, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Equal(t, data, onDisk)

	rec = c.get("/photos/" + itoa(p.ID))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	got, _ := io.ReadAll(rec.Body)
	assert.Equal(t, data, got)

	home := c.get("/home").Body.String()
	assert.Contains(t, home, "cute")
	assert.Contains(t, home, "Photo uploaded.")
}

func TestUpload_TooLarge(t *testing.T) {
	app := newTestApp(t)
	c := app.client()
	c.signup(t, "alice", "password1")
	c.login(t, "alice", "password1")

	rec := c.upload(t, "", &filePart{filename: "big.png", data: bytes.Repeat([]byte("x"), 2<<20)})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/upload", rec.Header().Get("Location"))
	assert.Zero(t, app.photoCount(t))
}

func TestGallery_OnlyOwnPhotos(t *testing.T) {
	app := newTestApp(t)
	alice, bob := app.client(), app.client()
	alice.signup(t, "alice", "password1")
	bob.signup(t, "bob", "password1")
	alice.login(t, "alice", "password1")
	bob.login(t, "bob", "password1")

	alice.upload(t, "alice-first", &filePart{filename: "a.png", data: []byte("a")})
	bob.upload(t, "bob-only", &filePart{filename: "b.png", data: []byte("b")})
	alice.upload(t, "alice-second", &filePart{filename: "c.png", data: []byte("c")})

	aliceHome := alice.get("/home").Body.String()
	assert.Contains(t, aliceHome, "alice-first")
	assert.Contains(t, aliceHome, "alice-second")
	assert.NotContains(t, aliceHome, "bob-only")

	bobHome := bob.get("/profile").Body.String()
	assert.Contains(t, bobHome, "bob-only")
	assert.NotContains(t, bobHome, "alice-first")

	var alicePhoto domain.Photo
	require.NoError(t, app.db.Where("user_id = ?", app.user(t, "alice").ID).First(&alicePhoto).Error)
	assert.Equal(t, http.StatusNotFound, bob.get("/photos/"+itoa(alicePhoto.ID)).Code)
	assert.Equal(t, http.StatusOK, alice.get("/photos/"+itoa(alicePhoto.ID)).Code)
	assert.Equal(t, http.StatusNotFound, alice.get("/photos/abc").Code)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	rec := app.client().get("/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServedContentType(t *testing.T) {
	assert.Equal(t, "image/png", servedContentType("image/png"))
	assert.Equal(t, "image/jpeg", servedContentType("image/jpeg; charset=binary"))
	assert.Equal(t, "application/octet-stream", servedContentType("text/html"))
	assert.Equal(t, "application/octet-stream", servedContentType("image/svg+xml"))
	assert.Equal(t, "application/octet-stream", servedContentType(""))
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
