package database

import "go.mongodb.org/mongo-driver/mongo"

// MongodbDB wraps the mongo database handle injected into repositories.
type MongodbDB struct {
	DB *mongo.Database
}

// Collection is a shorthand for DB.Collection.
func (m *MongodbDB) Collection(name string) *mongo.Collection {
	return m.DB.Collection(name)
}
