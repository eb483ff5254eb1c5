package api

import (
	"fmt" // Error wrapping

	"photo_share/internal/middleware" // Session gate and rate limiting
	"photo_share/internal/service"    // Business logic
	"photo_share/internal/session"    // Session stores
	"photo_share/internal/storage"    // Photo bytes
	"photo_share/internal/web"        // HTML templates

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// Dependencies are the collaborators the HTTP layer needs
type Dependencies struct {
	DB             *gorm.DB
	Accounts       *service.AccountService
	Gallery        *service.GalleryService
	Uploads        *service.UploadService
	Sessions       session.Store
	Storage        storage.Storage
	Limiter        *middleware.RateLimiter // nil disables rate limiting
	MaxUploadBytes int64
	TrustedProxies []string
	SecureCookies  bool // Flash cookies only over HTTPS, like the session cookie
}

// NewRouter builds the gin engine with every route registered
func NewRouter(d Dependencies) (*gin.Engine, error) {
	r := gin.Default() // Logger and Recovery middleware

	if err := r.SetTrustedProxies(d.TrustedProxies); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}
	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)
	r.MaxMultipartMemory = d.MaxUploadBytes
	r.Use(secureCookies(d.SecureCookies))

	r.GET("/", IndexHandler(d.Sessions))
	r.GET("/health", HealthHandler(d.DB))
	r.GET("/logout", LogoutHandler(d.Sessions))

	// Credential routes, throttled per client
	credentials := r.Group("")
	if d.Limiter != nil {
		credentials.Use(d.Limiter.Middleware())
	}
	credentials.GET("/signup", SignupPageHandler())
	credentials.POST("/signup", SignupHandler(d.Accounts))
	credentials.GET("/login", LoginPageHandler())
	credentials.POST("/login", LoginHandler(d.Accounts, d.Sessions))

	// Pages that need a signed-in user
	protected := r.Group("")
	protected.Use(middleware.SessionAuth(d.Sessions, d.Accounts))
	protected.GET("/home", GalleryHandler(d.Gallery))
	protected.GET("/profile", GalleryHandler(d.Gallery))
	protected.GET("/upload", UploadPageHandler())
	protected.POST("/upload", UploadHandler(d.Uploads, d.MaxUploadBytes))
	protected.GET("/photos/:id", PhotoHandler(d.Gallery, d.Storage))

	return r, nil
}
