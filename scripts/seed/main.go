// Seeds demo users and rooms so a fresh cluster has something to chat in.
package main

import (
	"log"
	"time"

	"github.com/gocql/gocql"

	"github.com/mahaj/baithak/pkg/config"
	"github.com/mahaj/baithak/pkg/model"
)

var users = []model.User{
	{ID: 1, Username: "alice"},
	{ID: 2, Username: "bob"},
	{ID: 3, Username: "carol"},
}

var rooms = []model.Room{
	{ID: 7, Slug: "general", Name: "general", Type: model.RoomPublic, CreatedBy: 1},
	{ID: 8, Slug: "backstage", Name: "backstage", Type: model.RoomPrivate, CreatedBy: 1, Members: []int64{1, 2}},
	{ID: 9, Slug: "alice-notes", Name: "alice-notes", Type: model.RoomPersonal, CreatedBy: 1},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	cluster := gocql.NewCluster(cfg.ScyllaHosts...)
	cluster.Keyspace = cfg.ScyllaKeyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 5 * time.Second
	session, err := cluster.CreateSession()
	if err != nil {
		log.Fatalf("Failed to connect to ScyllaDB: %v", err)
	}
	defer session.Close()

	for _, u := range users {
		if err := session.Query(`INSERT INTO users (username, id) VALUES (?, ?)`, u.Username, u.ID).Exec(); err != nil {
			log.Fatalf("Failed to insert user %s: %v", u.Username, err)
		}
		if err := session.Query(`INSERT INTO users_by_id (id, username) VALUES (?, ?)`, u.ID, u.Username).Exec(); err != nil {
			log.Fatalf("Failed to insert user %s: %v", u.Username, err)
		}
	}

	for _, r := range rooms {
		if err := session.Query(
			`INSERT INTO rooms (id, slug, name, room_type, created_by, members) VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, r.Slug, r.Name, string(r.Type), r.CreatedBy, r.Members,
		).Exec(); err != nil {
			log.Fatalf("Failed to insert room %s: %v", r.Slug, err)
		}
		if err := session.Query(
			`INSERT INTO rooms_by_slug (slug, id, name, room_type, created_by, members) VALUES (?, ?, ?, ?, ?, ?)`,
			r.Slug, r.ID, r.Name, string(r.Type), r.CreatedBy, r.Members,
		).Exec(); err != nil {
			log.Fatalf("Failed to insert room %s: %v", r.Slug, err)
		}
	}

	log.Printf("Seeded %d users and %d rooms", len(users), len(rooms))
}
