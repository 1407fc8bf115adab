package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/j1a5h3ng/attendance-app/docs"
	"github.com/j1a5h3ng/attendance-app/internal/attendance"
	"github.com/j1a5h3ng/attendance-app/internal/connectivity"
	"github.com/j1a5h3ng/attendance-app/internal/leaves"
	"github.com/j1a5h3ng/attendance-app/internal/medcerts"
	"github.com/j1a5h3ng/attendance-app/internal/notifications"
	"github.com/j1a5h3ng/attendance-app/internal/offline"
	"github.com/j1a5h3ng/attendance-app/internal/platform/auth"
	"github.com/j1a5h3ng/attendance-app/internal/platform/config"
	"github.com/j1a5h3ng/attendance-app/internal/platform/db"
	"github.com/j1a5h3ng/attendance-app/internal/platform/kvstore"
	"github.com/j1a5h3ng/attendance-app/internal/session"
	"github.com/j1a5h3ng/attendance-app/internal/settings"
	"github.com/j1a5h3ng/attendance-app/internal/syncer"
	"github.com/j1a5h3ng/attendance-app/internal/zones"
)

func main() {
	// 設定読み込み
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		panic(err)
	}

	mode := cfg.Mode
	log.Printf("[INFO] mode:%s\n", mode)

	if mode != "dev" && mode != "release" {
		fmt.Println("Usage: go run main.go [dev|release]")
		return
	}

	// ストア選択: dev はインメモリ、release は MySQL
	var store kvstore.Store
	if mode == "release" {
		conn, err := db.Connect(cfg.DB)
		if err != nil {
			panic(err)
		}
		defer conn.Close()
		log.Printf("[INFO] connected to DB: %s", cfg.DB.DBName)
		store = kvstore.NewMySQL(conn)
	} else {
		log.Printf("[INFO] using in-memory store (data is lost on restart)")
		store = kvstore.NewMemory()
	}

	ctx := context.Background()
	if err := store.Open(ctx); err != nil {
		// 永続ストレージが開けないならオフライン機能ごと諦めるしかない
		panic(err)
	}

	// コアの組み立て（グローバル状態は持たず全部ここで注入する）
	queue := offline.NewQueue(store)
	coord := syncer.NewCoordinator(queue, syncer.StubTransmitter{})
	monitor := connectivity.NewMonitor()

	zoneSvc := zones.NewService(store, cfg.Attendance.DefaultRadiusMeters)
	if err := zoneSvc.Seed(ctx, cfg.SeedZones()); err != nil {
		panic(err)
	}

	sessions := session.NewManager(queue, zoneSvc, session.UnsupportedLocator{}, monitor, coord,
		session.Config{
			TrustOnDisconnect: cfg.Attendance.TrustOnDisconnect,
			LocationTimeout:   cfg.LocationTimeout(),
		})

	attSvc := attendance.NewService(sessions, coord, queue, monitor)
	settingsSvc := settings.NewService(store)
	notifSvc := notifications.NewService(store, settingsSvc)
	leaveSvc := leaves.NewService(store, queue, notifSvc)
	medSvc := medcerts.NewService(store, queue, notifSvc)
	authSvc := auth.NewService(auth.NewStore(store), []byte(cfg.Auth.Secret))

	// オフライン→オンライン復帰で自動同期
	monitor.OnOnline(func() {
		if _, err := coord.Sync(context.Background()); err != nil {
			log.Printf("[WARN] reconnect sync failed: %v", err)
		}
	})

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if mode == "dev" {
		// CORS（開発中のみ必要）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// /api/v1
	api := r.Group("/api/v1")

	authed := api.Group("")
	authed.Use(auth.RequireAuth(authSvc.Secret()))

	admin := api.Group("")
	admin.Use(auth.RequireAuth(authSvc.Secret()), auth.RequireRole("admin"))

	auth.RegisterRoutes(api, admin, authSvc) // login は公開、アカウント管理は admin
	attendance.RegisterRoutes(authed, attSvc)
	zones.RegisterRoutes(authed, admin, zoneSvc)
	leaves.RegisterRoutes(authed, admin, leaveSvc)
	medcerts.RegisterRoutes(authed, admin, medSvc)
	settings.RegisterRoutes(authed, settingsSvc)
	notifications.RegisterRoutes(authed, notifSvc)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}

	go func() {
		cert, key := cfg.Server.Certificate.Cert, cfg.Server.Certificate.Key
		if cert != "" && key != "" {
			certFile := fmt.Sprintf("config/tls/%s/%s", mode, cert)
			keyFile := fmt.Sprintf("config/tls/%s/%s", mode, key)
			log.Printf("[INFO] listening on https://%s", cfg.Server.Addr)
			if err := srv.ListenAndServeTLS(certFile, keyFile); err != nil && err != http.ErrServerClosed {
				log.Fatal(err)
			}
			return
		}
		log.Printf("[INFO] listening on http://%s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Println("[INFO] shutting down...")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Fatal(err)
	}
}
