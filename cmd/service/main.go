// File: cmd/service/main.go
// @title        Tablebook API
// @version      1.0
// @description  餐廳訂位服務的後端 API 文件
// @host         localhost:8080
// @BasePath     /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description 填入 "Bearer <access_token>"
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"tablebook/internal/api"
	"tablebook/internal/cache"
	"tablebook/internal/database"
	"tablebook/internal/events"
	"tablebook/internal/router"
	"tablebook/internal/worker"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	_ "tablebook/docs" // 引入 swag 產出的 docs

	echoSwagger "github.com/swaggo/echo-swagger"
)

// 事件佇列長度，滿了之後新事件直接丟棄
const workerQueueSize = 64

// CustomValidator wraps go-playground/validator for Echo
// swagger:ignore
type CustomValidator struct {
	validator *validator.Validate
}

// Validate calls the underlying validator
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

var (
	newPgxPool       = database.NewPgxPool
	newRedisClient   = cache.NewRedisClient
	runMigrationsFn  = database.RunMigrations
	newAMQPPublisher = func(url string) (events.Publisher, error) { return events.NewAMQPPublisher(url) }
	newWorkerPool    = worker.NewPool
	startServer      = func(e *echo.Echo, addr string) error { return e.Start(addr) }
	exitFunc         = os.Exit
)

func run() error {
	// 本機開發用 .env，沒有就吃現有環境變數
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return fmt.Errorf("環境變數 DATABASE_URL 未設定")
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		return fmt.Errorf("環境變數 REDIS_ADDR 未設定")
	}

	redisDBStr := os.Getenv("REDIS_DB")
	if redisDBStr == "" {
		return fmt.Errorf("環境變數 REDIS_DB 未設定")
	}
	redisIndex, err := strconv.Atoi(redisDBStr)
	if err != nil {
		return fmt.Errorf("無效的 REDIS_DB: %v", err)
	}

	redisPassword := os.Getenv("REDIS_PASSWORD")

	workerCount := 1
	if v := os.Getenv("WORKER_COUNT"); v != "" {
		c, err := strconv.Atoi(v)
		if err != nil || c <= 0 {
			return fmt.Errorf("無效的 WORKER_COUNT: %v", err)
		}
		workerCount = c
	}

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	db, err := newPgxPool(context.Background(), dbURL)
	if err != nil {
		return fmt.Errorf("DB 連線失敗: %v", err)
	}
	defer db.Close()

	redis, err := newRedisClient(redisAddr, redisPassword, redisIndex)
	if err != nil {
		return fmt.Errorf("Redis 連線失敗: %v", err)
	}
	defer redis.Close()

	if err := runMigrationsFn(dbURL); err != nil {
		return fmt.Errorf("Migration 執行失敗: %v", err)
	}

	// RABBITMQ_URL 未設定時事件僅丟棄，服務照常運作
	var pub events.Publisher = events.NopPublisher{}
	if amqpURL := os.Getenv("RABBITMQ_URL"); amqpURL != "" {
		pub, err = newAMQPPublisher(amqpURL)
		if err != nil {
			return fmt.Errorf("RabbitMQ 連線失敗: %v", err)
		}
	}
	defer func() {
		if err := pub.Close(); err != nil {
			log.Printf("關閉 publisher 失敗: %v", err)
		}
	}()

	wp := newWorkerPool(workerCount, workerQueueSize)
	defer wp.Stop()

	e := echo.New()
	e.Validator = &CustomValidator{validator: api.NewValidator()}
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	router.Setup(e, db, redis, pub, wp)

	e.GET("/swagger/*", echoSwagger.WrapHandler)
	return startServer(e, addr)
}

func main() {
	if err := run(); err != nil {
		log.Print(err)
		exitFunc(1)
	}
}
