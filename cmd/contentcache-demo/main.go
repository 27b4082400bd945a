// Command contentcache-demo wires the cache subsystem into a minimal chi
// HTTP server: public routes behind the L1 interceptor, an admin surface
// that mutates an in-memory fake repository and publishes cache events
// through the trigger, and a background consumer loop.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/otero-labs/contentcache/internal/cacheevents"
	"github.com/otero-labs/contentcache/internal/cachelog"
	"github.com/otero-labs/contentcache/internal/config"
	"github.com/otero-labs/contentcache/internal/consumer"
	"github.com/otero-labs/contentcache/internal/interceptor"
	"github.com/otero-labs/contentcache/internal/l0store"
	"github.com/otero-labs/contentcache/internal/l1store"
	"github.com/otero-labs/contentcache/internal/monitoring"
	"github.com/otero-labs/contentcache/internal/registry"
	"github.com/otero-labs/contentcache/internal/repository"
	"github.com/otero-labs/contentcache/internal/trigger"
	"github.com/otero-labs/contentcache/internal/warmsync"
)

func main() {
	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	collector := monitoring.NewCollector()
	cachelog.Subscribe(collector)

	reg := registry.New()

	l0 := l0store.New(l0store.Limits{
		PostLimit:     cfg.L0PostLimit,
		PageLimit:     cfg.L0PageLimit,
		ApiKeyLimit:   cfg.L0ApiKeyLimit,
		PostListLimit: cfg.L0PostListLimit,
	})
	l0.SetEnabled(cfg.EnableL0Cache)

	l1 := l1store.New(l1store.Config{
		Capacity:               cfg.L1ResponseLimit,
		ResponseBodyLimitBytes: cfg.L1ResponseBodyLimitBytes,
	}, reg)

	repo := repository.NewFake()
	seedDemoContent(repo)

	queue := cacheevents.NewQueue(cfg.MaxQueueEvents)
	warm := warmsync.New(50, 10)

	cons := consumer.New(l0, l1, reg, queue, repo, warm, consumer.Config{
		ConsumeBatchLimit:   cfg.ConsumeBatchLimit,
		AutoConsumeInterval: cfg.AutoConsumeInterval(),
	})
	cons.Loop()
	defer cons.Stop()

	trig := trigger.New(queue, cons)
	trig.Trigger(context.Background(), cacheevents.WarmupOnStartup("startup"), false)
	cons.ConsumeFull(context.Background())

	ic := interceptor.New(l1, reg, interceptor.Config{Enabled: cfg.EnableL1Cache})

	srv := &server{l0: l0, repo: repo}
	adminSrv := &adminServer{repo: repo, trig: trig}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Group(func(pub chi.Router) {
		pub.Use(cors.Handler(cors.Options{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"GET"}}))
		pub.Use(ic.Middleware)

		pub.Get("/", srv.handleIndex)
		pub.Get("/posts/{slug}", srv.handlePostBySlug)
		pub.Get("/pages/{slug}", srv.handlePageBySlug)
		pub.Get("/feed.xml", srv.handleFeed)
		pub.Get("/sitemap.xml", srv.handleSitemap)
		pub.Get("/api/v1/posts", srv.handleListPosts)
		pub.Get("/api/v1/tags", srv.handleTagCounts)
	})

	r.Route("/admin", func(adm chi.Router) {
		adm.Put("/posts", adminSrv.handlePutPost)
		adm.Delete("/posts/{id}", adminSrv.handleDeletePost)
		adm.Put("/pages", adminSrv.handlePutPage)
		adm.Delete("/pages/{id}", adminSrv.handleDeletePage)
		adm.Put("/settings", adminSrv.handlePutSettings)
		adm.Put("/navigation", adminSrv.handlePutNavigation)
		adm.Put("/api-keys", adminSrv.handlePutApiKey)
		adm.Delete("/api-keys/{prefix}", adminSrv.handleRevokeApiKey)
		adm.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"counters": collector.Snapshot(),
				"alerts":   collector.ActiveAlerts(),
			})
		})
	})

	addr := ":8080"
	if v := os.Getenv("CONTENTCACHE_ADDR"); v != "" {
		addr = v
	}

	httpSrv := &http.Server{Addr: addr, Handler: r}
	log.Printf("contentcache-demo listening on %s", addr)

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	_ = httpSrv.Close()
}

func configPath() string {
	if v := os.Getenv("CONTENTCACHE_CONFIG"); v != "" {
		return v
	}
	return "contentcache.yaml"
}

func seedDemoContent(repo *repository.Fake) {
	repo.PutPost(repository.Post{
		ID: 1, Slug: "hello-world", Title: "Hello, World",
		Body: "The first post.", Tags: []string{"intro"}, Status: "published", Month: "2026-07",
	})
	repo.PutPage(repository.Page{ID: 1, Slug: "about", Title: "About", Body: "About this site."})
	repo.SetNavigation(repository.Navigation{Items: []repository.NavItem{
		{Label: "About", Href: "/pages/about", InternalPage: 1},
	}})
}
