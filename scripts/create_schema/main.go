// Creates the chat keyspace and tables. Run once before starting gateways;
// production deployments should use a migration tool instead.
package main

import (
	"log"
	"time"

	"github.com/gocql/gocql"

	"github.com/mahaj/baithak/pkg/config"
)

func connect(hosts []string, keyspace string) *gocql.Session {
	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 5 * time.Second
	session, err := cluster.CreateSession()
	if err != nil {
		log.Fatalf("Failed to connect to %s: %v", keyspace, err)
	}
	return session
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	sys := connect(cfg.ScyllaHosts, "system")
	err = sys.Query(`CREATE KEYSPACE IF NOT EXISTS ` + cfg.ScyllaKeyspace +
		` WITH REPLICATION = { 'class' : 'SimpleStrategy', 'replication_factor' : 1 }`).Exec()
	sys.Close()
	if err != nil {
		log.Fatalf("Failed to create keyspace: %v", err)
	}

	session := connect(cfg.ScyllaHosts, cfg.ScyllaKeyspace)
	defer session.Close()

	tables := []string{
		`CREATE TABLE IF NOT EXISTS users (
			username text PRIMARY KEY,
			id bigint
		)`,
		`CREATE TABLE IF NOT EXISTS users_by_id (
			id bigint PRIMARY KEY,
			username text
		)`,
		`CREATE TABLE IF NOT EXISTS rooms (
			id bigint PRIMARY KEY,
			slug text,
			name text,
			room_type text,
			created_by bigint,
			members set<bigint>
		)`,
		`CREATE TABLE IF NOT EXISTS rooms_by_slug (
			slug text PRIMARY KEY,
			id bigint,
			name text,
			room_type text,
			created_by bigint,
			members set<bigint>
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			room_id bigint,
			id bigint,
			user_id bigint,
			username text,
			content text,
			image text,
			created_on timestamp,
			PRIMARY KEY (room_id, id)
		) WITH CLUSTERING ORDER BY (id DESC)`,
	}

	for _, q := range tables {
		if err := session.Query(q).Exec(); err != nil {
			log.Fatalf("Failed to create table: %v", err)
		}
	}

	log.Println("Schema created successfully")
}
