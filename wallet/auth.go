package wallet

import (
	bolt "go.etcd.io/bbolt"
	"golang.org/x/crypto/bcrypt"

	"github.com/ebourg/hathor-wallet/errors"
)

const (
	pwTypeKey = "pwtype"
	pwHashKey = "pwhash"
)

var errInvalidPassword = errors.New("invalid password")

// SetPassword stores the bcrypt hash of the RPC password. It must
// be called once before the walletrpc surface can authenticate
// anyone.
func (g *Agent) SetPassword(password string) error {
	if password == "" {
		return errors.Wrap(errInvalidPassword, "empty password")
	}
	if len(password) > 72 {
		return errors.Wrap(errInvalidPassword, "too long (max 72 chars)") // bcrypt limit
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return g.db.Update(func(tx *bolt.Tx) error {
		bu, err := tx.CreateBucketIfNotExists([]byte(walletBucket))
		if err != nil {
			return err
		}
		err = bu.Put([]byte(pwTypeKey), []byte("bcrypt"))
		if err != nil {
			return err
		}
		return bu.Put([]byte(pwHashKey), digest)
	})
}

// Authenticate checks the RPC password. It returns ErrAuthFailed
// when the password does not match or none has been set.
func (g *Agent) Authenticate(password string) error {
	var digest []byte
	err := g.db.View(func(tx *bolt.Tx) error {
		bu := tx.Bucket([]byte(walletBucket))
		if bu == nil {
			return nil
		}
		digest = append([]byte(nil), bu.Get([]byte(pwHashKey))...)
		return nil
	})
	if err != nil {
		return err
	}
	if len(digest) == 0 {
		return ErrAuthFailed
	}
	err = bcrypt.CompareHashAndPassword(digest, []byte(password))
	if err != nil {
		return errors.Sub(ErrAuthFailed, err)
	}
	return nil
}
