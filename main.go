package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kakunuriMahesh/activity-tracker-backend/handlers"
	"github.com/kakunuriMahesh/activity-tracker-backend/internal/db"
	"github.com/kakunuriMahesh/activity-tracker-backend/internal/logger"
	"github.com/kakunuriMahesh/activity-tracker-backend/internal/push"
	"github.com/kakunuriMahesh/activity-tracker-backend/internal/workers"
	"github.com/kakunuriMahesh/activity-tracker-backend/middleware"
	"github.com/kakunuriMahesh/activity-tracker-backend/services"
)

var (
	dbPool              *pgxpool.Pool
	userService         *services.UserService
	taskService         *services.TaskService
	challengeService    *services.ChallengeService
	notificationService *services.NotificationService
	streakService       *services.StreakService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	if err := logger.Init(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FILE")); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}

	if os.Getenv("JWT_SECRET") == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	dbPool, err = db.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	if err := db.Migrate(ctx, dbPool); err != nil {
		log.Fatal("Failed to apply schema:", err)
	}
	logger.Sugar.Info("database ready")

	userService = services.NewUserService(dbPool)
	taskService = services.NewTaskService(dbPool)
	notificationService = services.NewNotificationService(dbPool)
	challengeService = services.NewChallengeService(dbPool, userService, notificationService)
	streakService = services.NewStreakService(dbPool, userService)

	fcmService, err := push.NewFCMService("./serviceAccountKey.json")
	if err != nil {
		logger.Sugar.Warnw("push disabled", "error", err)
	} else {
		notificationService.SetPushProvider(fcmService)
		logger.Sugar.Info("FCM push provider initialized")
	}

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		logger.Sugar.Info("closing database connection pool")
		dbPool.Close()
		logger.Sync()
	}()

	userHandler := handlers.NewUserHandler(userService)
	taskHandler := handlers.NewTaskHandler(taskService)
	challengeHandler := handlers.NewChallengeHandler(challengeService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	r := mux.NewRouter()

	middleware.StartVisitorCleanup(workerCtx)

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "activity-tracker-api"}`))
	}).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/signup", userHandler.Signup).Methods("POST")
	api.HandleFunc("/auth/login", userHandler.Login).Methods("POST")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware)

	protected.HandleFunc("/users/search", userHandler.SearchUsers).Methods("GET")
	protected.HandleFunc("/users/{userId}", userHandler.GetUser).Methods("GET")
	protected.HandleFunc("/users/{userId}/profile", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/users/{userId}/challenges", userHandler.ListChallenges).Methods("GET")
	protected.HandleFunc("/users/{userId}/tasks", taskHandler.ListUserTasks).Methods("GET")
	protected.HandleFunc("/users/{userId}/notifications", notificationHandler.ListNotifications).Methods("GET")

	protected.HandleFunc("/tasks", taskHandler.CreateTask).Methods("POST")
	protected.HandleFunc("/tasks/{taskId}", taskHandler.GetTask).Methods("GET")
	protected.HandleFunc("/tasks/{taskId}", taskHandler.UpdateTask).Methods("PATCH")

	protected.HandleFunc("/challenges", challengeHandler.CreateChallenge).Methods("POST")
	protected.HandleFunc("/challenges/{challengeId}", challengeHandler.GetChallenge).Methods("GET")
	protected.HandleFunc("/challenges/{challengeId}", challengeHandler.AssignChallenge).Methods("PATCH")
	protected.HandleFunc("/challenges/{challengeId}", challengeHandler.DeleteChallenge).Methods("DELETE")
	protected.HandleFunc("/challenges/{challengeId}/respond", challengeHandler.RespondToChallenge).Methods("POST")
	protected.HandleFunc("/challenges/{challengeId}/progress", challengeHandler.LogProgress).Methods("POST")
	protected.HandleFunc("/challenges/{challengeId}/edit", challengeHandler.EditChallenge).Methods("PATCH")

	protected.HandleFunc("/notifications/{notificationId}/read", notificationHandler.MarkAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/{notificationId}", notificationHandler.DeleteNotification).Methods("DELETE")
	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")

	workers.StartStreakWorker(workerCtx, streakService, streakInterval())

	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{"*"}),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorillaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Sugar.Infow("starting server", "addr", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	logger.Sugar.Infow("got signal", "signal", sig.String())

	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Sugar.Errorw("server shutdown error", "error", err)
	}

	logger.Sugar.Info("server shutdown complete")
}

// streakInterval is how often the streak sweep runs. The sweep itself is
// day-keyed and idempotent, so running more often than daily is safe.
func streakInterval() time.Duration {
	if v := os.Getenv("STREAK_SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return time.Hour
}
