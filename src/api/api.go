package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/productporter/productporter/src/api/config"
	"github.com/productporter/productporter/src/api/data"
	"github.com/productporter/productporter/src/api/types"
	"github.com/productporter/productporter/src/api/webserver"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ensureModerator seeds a bootstrap moderator account from the
// environment so a fresh deployment can lock fields and pull the feed.
func ensureModerator(db *gorm.DB) {
	username := os.Getenv("BOOTSTRAP_MODERATOR")
	password := os.Getenv("BOOTSTRAP_MODERATOR_PASSWORD")
	if username == "" || password == "" {
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("bootstrap moderator: %v", err)
	}
	var u types.User
	err = db.FirstOrCreate(&u, types.User{Username: username}).Error
	if err != nil {
		log.Fatalf("bootstrap moderator: %v", err)
	}
	db.Model(&u).Updates(map[string]interface{}{
		"password":  string(hash),
		"moderator": true,
	})
}

func main() {
	cfg := config.Load()

	db := data.MustMySQL(cfg.MySQLDSN)
	data.Migrate(db)
	ensureModerator(db)

	rdb := data.MustRedis(cfg.RedisURL)

	router := webserver.New(cfg, db, rdb)
	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()
	log.Printf("ProductPorter API listening on %s", cfg.Port)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = httpSrv.Shutdown(shutCtx)
}
