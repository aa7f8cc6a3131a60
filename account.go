package main

import (
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/mnemonic"
	"github.com/boltdb/bolt"

	"github.com/cool-develope/Algorand-NFTMarketplace/marketplace"
)

// credentials is the bolt-backed credential provider. Accounts are
// stored as mnemonics keyed by their address, one bucket per chain.
type credentials struct{}

func (credentials) Resolve(id string) (crypto.Account, error) {
	return getAccount(id)
}

func createAccount() (string, error) {
	acct := crypto.GenerateAccount()

	mn, err := mnemonic.FromPrivateKey(acct.PrivateKey)
	if err != nil {
		return "", err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(getAccountBucketName())
		return b.Put([]byte(acct.Address.String()), []byte(mn))
	})
	if err != nil {
		return "", err
	}

	return acct.Address.String(), nil
}

func getAccount(addr string) (crypto.Account, error) {
	var val []byte

	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(getAccountBucketName())
		val = b.Get([]byte(addr))
		return nil
	})
	if err != nil {
		return crypto.Account{}, fmt.Errorf("failed to get the account from db: %s", err)
	}

	if val == nil {
		return crypto.Account{}, fmt.Errorf("%w: %s", marketplace.ErrUnknownAccount, addr)
	}

	sk, err := mnemonic.ToPrivateKey(string(val))
	if err != nil {
		return crypto.Account{}, err
	}

	return crypto.AccountFromPrivateKey(sk)
}
