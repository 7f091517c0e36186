// Command otpgate-server runs the OTP challenge service against real
// PostgreSQL and Redis backends.
//
// Configuration comes from the environment (a .env file is loaded if
// present):
//
//	DATABASE_URL   PostgreSQL DSN (required)
//	REDIS_ADDR     Redis address, default localhost:6379
//	REDIS_PASSWORD Redis password, optional
//	JWT_SECRET     HS256 signing secret, at least 32 bytes (required)
//	UPLOAD_ROOT    storage root for mentor proof uploads, default ./uploads
//	LISTEN_ADDR    HTTP listen address, default :8080
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/devconnect-io/otpgate"
	"github.com/devconnect-io/otpgate/filestore"
	"github.com/devconnect-io/otpgate/gormstore"
	"github.com/devconnect-io/otpgate/metrics/export/prometheus"
)

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}
	secret := os.Getenv("JWT_SECRET")
	if len(secret) < 32 {
		log.Fatal("JWT_SECRET must be at least 32 bytes")
	}

	accounts, err := gormstore.Open(dsn)
	if err != nil {
		log.Fatal("postgres:", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     envOr("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("redis:", err)
	}

	files, err := filestore.NewLocal(envOr("UPLOAD_ROOT", "./uploads"))
	if err != nil {
		log.Fatal("filestore:", err)
	}

	engine, err := otpgate.New().
		WithRedis(rdb).
		WithAccountStore(accounts).
		WithFileStager(files).
		WithNotifier(logNotifier{}).
		WithJWTSecret([]byte(secret)).
		Build()
	if err != nil {
		log.Fatal("engine build:", err)
	}
	defer engine.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/register", registerHandler(engine))
	mux.HandleFunc("POST /api/register/confirm", registerConfirmHandler(engine))
	mux.HandleFunc("POST /api/login", loginHandler(engine))
	mux.HandleFunc("POST /api/login/confirm", loginConfirmHandler(engine))
	mux.HandleFunc("POST /api/email-otp/send", emailOTPSendHandler(engine))
	mux.HandleFunc("POST /api/email-otp/verify", emailOTPVerifyHandler(engine))
	mux.Handle("GET /metrics", prometheus.NewExporter(engine).Handler())

	server := &http.Server{
		Addr:              envOr("LISTEN_ADDR", ":8080"),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// logNotifier logs code issuance without the code itself. Swap in a real
// email or SMS notifier for production delivery.
type logNotifier struct{}

func (logNotifier) Notify(_ context.Context, email, _ string) error {
	log.Printf("otp issued for %s", email)
	return nil
}

/*
====================================
HANDLERS
====================================
*/

func registerHandler(engine *otpgate.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Mentor registrations arrive as multipart so the proof file can ride
		// along; developer registrations may use either encoding.
		req, err := decodeRegistration(r)
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		challengeID, err := engine.BeginRegistration(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"challenge_id": challengeID})
	}
}

func decodeRegistration(r *http.Request) (otpgate.RegistrationRequest, error) {
	var req otpgate.RegistrationRequest

	if err := r.ParseMultipartForm(32 << 20); err == nil {
		var skills []string
		if raw := r.FormValue("skills"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &skills); err != nil {
				return req, err
			}
		}
		years := 0
		if raw := r.FormValue("years_of_experience"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &years); err != nil {
				return req, err
			}
		}

		req = otpgate.RegistrationRequest{
			Email:             r.FormValue("email"),
			Username:          r.FormValue("username"),
			FullName:          r.FormValue("full_name"),
			Password:          r.FormValue("password"),
			Phone:             r.FormValue("phone"),
			Role:              otpgate.Role(r.FormValue("role")),
			Skills:            skills,
			YearsOfExperience: years,
		}

		if file, header, err := r.FormFile("proof"); err == nil {
			defer file.Close()
			req.Proof = file
			req.ProofFilename = header.Filename
		}
		return req, nil
	}

	var body struct {
		Email    string   `json:"email"`
		Username string   `json:"username"`
		FullName string   `json:"full_name"`
		Password string   `json:"password"`
		Phone    string   `json:"phone"`
		Role     string   `json:"role"`
		Skills   []string `json:"skills"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return req, err
	}
	return otpgate.RegistrationRequest{
		Email:    body.Email,
		Username: body.Username,
		FullName: body.FullName,
		Password: body.Password,
		Phone:    body.Phone,
		Role:     otpgate.Role(body.Role),
		Skills:   body.Skills,
	}, nil
}

func registerConfirmHandler(engine *otpgate.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ChallengeID string `json:"challenge_id"`
			Code        string `json:"code"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		summary, err := engine.ConfirmRegistration(r.Context(), body.ChallengeID, body.Code)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"account_id": summary.AccountID,
			"email":      summary.Email,
			"username":   summary.Username,
			"role":       summary.Role,
			"approved":   summary.Approved,
		})
	}
}

func loginHandler(engine *otpgate.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		challengeID, err := engine.LoginWithPassword(r.Context(), body.Email, body.Password)
		if err != nil {
			writeError(w, err)
			return
		}

		http.SetCookie(w, engine.LoginChallengeCookie(challengeID))
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "code sent"})
	}
}

func loginConfirmHandler(engine *otpgate.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(engine.ChallengeCookieName())
		if err != nil || cookie.Value == "" {
			http.Error(w, "missing challenge cookie", http.StatusUnauthorized)
			return
		}

		var body struct {
			Code string `json:"code"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		pair, err := engine.ConfirmLoginOTP(r.Context(), cookie.Value, body.Code)
		if err != nil {
			if !errors.Is(err, otpgate.ErrInvalidCode) {
				http.SetCookie(w, engine.ClearLoginChallengeCookie())
			}
			writeError(w, err)
			return
		}

		http.SetCookie(w, engine.ClearLoginChallengeCookie())
		writeJSON(w, http.StatusOK, map[string]string{
			"access_token":  pair.AccessToken,
			"refresh_token": pair.RefreshToken,
		})
	}
}

func emailOTPSendHandler(engine *otpgate.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		if err := engine.SendEmailOTP(r.Context(), body.Email); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "code sent"})
	}
}

func emailOTPVerifyHandler(engine *otpgate.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email string `json:"email"`
			Code  string `json:"code"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		if err := engine.VerifyEmailOTP(r.Context(), body.Email, body.Code); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, otpgate.ErrValidation), errors.Is(err, otpgate.ErrInvalidRole):
		status = http.StatusBadRequest
	case errors.Is(err, otpgate.ErrInvalidCode),
		errors.Is(err, otpgate.ErrInvalidCredentials),
		errors.Is(err, otpgate.ErrChallengeExpired):
		status = http.StatusUnauthorized
	case errors.Is(err, otpgate.ErrAccountNotApproved):
		status = http.StatusForbidden
	case errors.Is(err, otpgate.ErrDuplicateAccount):
		status = http.StatusConflict
	case errors.Is(err, otpgate.ErrTooManyAttempts):
		status = http.StatusTooManyRequests
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
