//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-stress/domain"
	"context"
	"reflect"
	"time"
)

type ISupervisor interface {
	Start(worker Worker) bool
	Stop()
	Wait(timeout time.Duration) bool
	Running() int
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// IBackend is the sequential HTTP collaborator of the harness.
type IBackend interface {
	Register(ctx context.Context, identity domain.Identity) (domain.RegisterStatus, error)
	Login(ctx context.Context, identity domain.Identity) (domain.Credentials, error)
	Send(ctx context.Context, token string, message domain.Message) error
	DeleteAllUsers(ctx context.Context) (int, error)
	DeleteUser(ctx context.Context, email, adminToken string) error
}

// IDialer opens the authenticated duplex connection of one logged-in identity.
type IDialer interface {
	Dial(ctx context.Context, creds domain.Credentials) (domain.DuplexConn, error)
}

// IRegistry holds the Live sessions. All methods are mutually atomic.
type IRegistry interface {
	Insert(session *domain.Session) error
	Remove(id string) bool
	SampleDistinctPair() (*domain.Session, *domain.Session, bool)
	Len() int
}

// IDelivery hands one message from a sender to the backend.
type IDelivery interface {
	Deliver(ctx context.Context, from *domain.Session, message domain.Message) error
}

// IIdentityRepository is the durable list of provisioned identities.
type IIdentityRepository interface {
	Save(identities ...domain.Identity) error
	List() ([]domain.Identity, error)
	Delete(emails ...string) error
	Clear() error
}
