package repository

import (
	"context"
	"errors"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound        = errors.New("repository: not found")
	ErrAlreadyCredited = errors.New("repository: deposit already credited")
)

func Connect(conn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", conn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*2)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) Store {
	return Store{db: db}
}
