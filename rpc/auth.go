package rpc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	lru "github.com/hashicorp/golang-lru"

	"github.com/photon-ccm/photon/crypto"
	"github.com/photon-ccm/photon/types"
)

/*
Mutating REST calls are authenticated by the request headers:

	X-Photon-Caller     hex encoded 32 byte caller identity (ed25519 public key)
	X-Photon-Nonce      decimal request nonce, unix time of the request in milliseconds
	X-Photon-Signature  hex encoded ed25519 signature of the request message

The signed message (see requestMessage) binds the method, the path, the
nonce and the body of the request. The nonce must be within the auth window
of the server clock and greater than the nonce of the previous accepted
request of the caller.
*/
const (
	headerCaller    = "X-Photon-Caller"
	headerNonce     = "X-Photon-Nonce"
	headerSignature = "X-Photon-Signature"

	DefaultAuthWindow      = 30 * time.Second
	defaultAuthCallerCache = 4096
)

var (
	errUnauthenticated = errors.New("request is not authenticated")

	lastRequestNonce atomic.Uint64
)

type (
	AuthOption func(*authenticator)

	/*
	authenticator verifies request signatures and keeps the last accepted
	nonce of the recent callers. Callers evicted from the cache are still
	bound by the window.
	*/
	authenticator struct {
		window time.Duration
		now    func() time.Time

		mu   sync.Mutex
		last *lru.Cache // types.Address -> uint64
	}
)

// WithAuthWindow sets how far the request nonce may be from the server clock.
func WithAuthWindow(d time.Duration) AuthOption {
	return func(a *authenticator) {
		if d > 0 {
			a.window = d
		}
	}
}

func withAuthClock(now func() time.Time) AuthOption {
	return func(a *authenticator) { a.now = now }
}

func newAuthenticator(opts ...AuthOption) *authenticator {
	// error is returned only for non-positive size
	cache, _ := lru.New(defaultAuthCallerCache)
	a := &authenticator{window: DefaultAuthWindow, now: time.Now, last: cache}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

/*
authenticate reads the request body and verifies that the request has been
signed by the caller and is not a replay. Returns the caller and the body.
*/
func (a *authenticator) authenticate(r *http.Request) (types.Address, []byte, error) {
	var caller types.Address
	if err := caller.UnmarshalText([]byte(r.Header.Get(headerCaller))); err != nil {
		return caller, nil, fmt.Errorf("%w: invalid %s header: %v", errUnauthenticated, headerCaller, err)
	}
	nonce, err := strconv.ParseUint(r.Header.Get(headerNonce), 10, 64)
	if err != nil {
		return caller, nil, fmt.Errorf("%w: invalid %s header: %v", errUnauthenticated, headerNonce, err)
	}
	sig, err := hexutil.Decode(r.Header.Get(headerSignature))
	if err != nil {
		return caller, nil, fmt.Errorf("%w: invalid %s header: %v", errUnauthenticated, headerSignature, err)
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return caller, nil, fmt.Errorf("reading request body: %w", err)
	}
	if err := crypto.NewEd25519Verifier(caller).VerifyBytes(sig, requestMessage(r.Method, r.URL.Path, nonce, body)); err != nil {
		return caller, nil, fmt.Errorf("%w: signature doesn't verify", errUnauthenticated)
	}
	if err := a.useNonce(caller, nonce); err != nil {
		return caller, nil, err
	}
	return caller, body, nil
}

func (a *authenticator) useNonce(caller types.Address, nonce uint64) error {
	now := a.now()
	ts := time.UnixMilli(int64(nonce))
	if ts.Before(now.Add(-a.window)) || ts.After(now.Add(a.window)) {
		return fmt.Errorf("%w: request nonce %d is outside of the %s window", errUnauthenticated, nonce, a.window)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if last, ok := a.last.Get(caller); ok && nonce <= last.(uint64) {
		return fmt.Errorf("%w: request nonce %d has been used already", errUnauthenticated, nonce)
	}
	a.last.Add(caller, nonce)
	return nil
}

/*
requestMessage returns the message the caller signs:

	method \n path \n nonce \n body
*/
func requestMessage(method, path string, nonce uint64, body []byte) []byte {
	var b bytes.Buffer
	b.WriteString(method)
	b.WriteByte('\n')
	b.WriteString(path)
	b.WriteByte('\n')
	b.WriteString(strconv.FormatUint(nonce, 10))
	b.WriteByte('\n')
	b.Write(body)
	return b.Bytes()
}

// nextRequestNonce returns current unix time in milliseconds, strictly increasing within the process.
func nextRequestNonce() uint64 {
	for {
		last := lastRequestNonce.Load()
		n := max(uint64(time.Now().UnixMilli()), last+1)
		if lastRequestNonce.CompareAndSwap(last, n) {
			return n
		}
	}
}

/*
SignRequest sets the authentication headers of the request, "body" must be
the body the request is sent with.
*/
func SignRequest(r *http.Request, signer *crypto.InMemoryEd25519Signer, body []byte) error {
	nonce := nextRequestNonce()
	sig, err := signer.SignBytes(requestMessage(r.Method, r.URL.Path, nonce, body))
	if err != nil {
		return fmt.Errorf("signing request: %w", err)
	}
	r.Header.Set(headerCaller, signer.Address().String())
	r.Header.Set(headerNonce, strconv.FormatUint(nonce, 10))
	r.Header.Set(headerSignature, hexutil.Encode(sig))
	return nil
}
