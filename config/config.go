// config/config.go
package config

import (
	"log"
	"os"
	"time"
)

var (
	Port          string
	MongoURI      string
	MongoDatabase string
	JWTKey        []byte
	JWTExpiration time.Duration

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// OwnerDirectWrite lets editors update assets they own without going
	// through the review ledger. Default is off: every editor change is
	// staged as a pending version.
	OwnerDirectWrite bool
)

func LoadConfig() {
	Port = os.Getenv("PORT")
	if Port == "" {
		Port = "8080"
	}

	MongoURI = os.Getenv("MONGO_URI")
	if MongoURI == "" {
		MongoURI = "mongodb://localhost:27017"
	}

	MongoDatabase = os.Getenv("MONGO_DB")
	if MongoDatabase == "" {
		MongoDatabase = "dam"
	}

	JWTKey = []byte(os.Getenv("JWT_SECRET"))
	if len(JWTKey) == 0 {
		JWTKey = []byte("secret")
	}

	expireStr := os.Getenv("JWT_EXPIRE")
	dur := 24 * time.Hour
	if expireStr != "" {
		var err error
		dur, err = time.ParseDuration(expireStr)
		if err != nil {
			log.Printf("Invalid JWT_EXPIRE: %s, using 24h", expireStr)
			dur = 24 * time.Hour
		}
	}
	JWTExpiration = dur

	MinioEndpoint = os.Getenv("MINIO_ENDPOINT")
	if MinioEndpoint == "" {
		MinioEndpoint = "localhost:9000"
	}
	MinioAccessKey = os.Getenv("MINIO_ACCESS_KEY")
	if MinioAccessKey == "" {
		MinioAccessKey = "minioadmin"
	}
	MinioSecretKey = os.Getenv("MINIO_SECRET_KEY")
	if MinioSecretKey == "" {
		MinioSecretKey = "minioadmin"
	}
	MinioBucket = os.Getenv("MINIO_BUCKET")
	if MinioBucket == "" {
		MinioBucket = "dam-assets"
	}
	MinioUseSSL = os.Getenv("MINIO_USE_SSL") == "true"

	OwnerDirectWrite = os.Getenv("OWNER_DIRECT_WRITE") == "true"
}
