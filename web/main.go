package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"drillwatch.org/drillwatch/core"
	"drillwatch.org/drillwatch/infrastructure/filesystem"
	"drillwatch.org/drillwatch/web/handlers"
	"drillwatch.org/drillwatch/web/middlewares"
	"drillwatch.org/drillwatch/web/model"
)

func main() {
	godotenv.Load()

	r := gin.Default()
	r.Use(cors.Default())

	dsn := os.Getenv("DSN")
	fmt.Printf("using DSN: %s\n", dsn)
	dm, err := core.New(dsn, 10)
	if err != nil {
		log.Fatal(err)
	}
	defer dm.Close()

	if err := dm.DB.AutoMigrate(
		&model.EventRecord{},
		&model.ReportRecord{},
		&model.AttendanceRecord{},
		&model.MediaRecord{},
	); err != nil {
		log.Fatal(err)
	}

	blobs, err := newBlobStore(context.Background())
	if err != nil {
		log.Fatal(err)
	}

	base64Secret := os.Getenv("DRILLWATCH_SIGNING_SECRET")
	jwtSecret, err := base64.StdEncoding.DecodeString(base64Secret)
	if err != nil {
		log.Fatal("Failed to decode JWT secret:", err)
	}

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	protected := r.Group("/api/v1")
	protected.Use(middlewares.Authentication(jwtSecret))
	{
		protected.POST("/sync/:entity", handlers.SyncPushHandler(dm))
		protected.PUT("/media/:id/blob", handlers.MediaBlobHandler(dm, blobs))
		protected.GET("/events", handlers.ListEventsHandler(dm))
		protected.GET("/events/:id/reports", handlers.ListEventReportsHandler(dm))
		protected.GET("/events/:id/attendance", handlers.ListEventAttendanceHandler(dm))
		protected.GET("/events/:id/export", handlers.ExportEventHandler(dm))
	}

	r.Run("0.0.0.0:8090")
}

func newBlobStore(ctx context.Context) (filesystem.BlobStore, error) {
	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		fmt.Printf("storing media in s3 bucket %s\n", bucket)
		return filesystem.NewS3Filesystem(ctx, bucket)
	}
	dir := os.Getenv("MEDIA_DIR")
	if dir == "" {
		dir = "uploads"
	}
	fmt.Printf("storing media under %s\n", dir)
	return filesystem.NewLocalFilesystem(dir)
}
