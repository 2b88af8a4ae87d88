package bootstrap

import (
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	TaskboardMongoClient   *mongo.Client
	TaskboardMongoDatabase *mongo.Database
}
