package main

import (
	"fmt"

	"github.com/boltdb/bolt"
)

func openDB(dbpath string) *bolt.DB {
	db, err := bolt.Open(dbpath, 0660, nil)
	if err != nil {
		panic(fmt.Sprintf("unable to init the database: %v", err))
	}

	db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(getAccountBucketName())
		if err != nil {
			panic(fmt.Sprintf("unable to init the database: %v", err))
		}

		return nil
	})

	return db
}

func getAccountBucketName() []byte {
	bucketname := "account-testnet"
	if cfg.Chain == "live" {
		bucketname = "account-livenet"
	}

	return []byte(bucketname)
}
