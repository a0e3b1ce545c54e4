package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	MySQLDSN     string
	RedisURL     string
	JWTSecret    string
	Port         string
	OnlineWindow time.Duration // how recent a heartbeat must be to count as online
	FeedBaseURL  string        // upstream product feed
	FeedToken    string
	PullRetries  int
	RateLimit    int           // requests allowed per caller per window on edit endpoints
	RateWindow   time.Duration
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		if def == "" {
			log.Fatalf("missing env %s", key)
		}
		return def
	}
	return v
}

func Load() Config {
	onlineMin, _ := strconv.Atoi(getenv("ONLINE_WINDOW_MINUTES", "10"))
	retries, _ := strconv.Atoi(getenv("PULL_RETRIES", "3"))
	rateLimit, _ := strconv.Atoi(getenv("RATE_LIMIT", "30"))
	rateWinSec, _ := strconv.Atoi(getenv("RATE_WINDOW_SECONDS", "60"))
	return Config{
		MySQLDSN:     getenv("MYSQL_DSN", "porter:porter@tcp(127.0.0.1:3306)/productporter?parseTime=true"),
		RedisURL:     getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		JWTSecret:    getenv("JWT_SECRET", "change-me-in-production"),
		Port:         getenv("PORT", "8080"),
		OnlineWindow: time.Duration(onlineMin) * time.Minute,
		FeedBaseURL:  getenv("FEED_BASE_URL", "https://api.producthunt.com"),
		FeedToken:    os.Getenv("FEED_TOKEN"),
		PullRetries:  retries,
		RateLimit:    rateLimit,
		RateWindow:   time.Duration(rateWinSec) * time.Second,
	}
}
