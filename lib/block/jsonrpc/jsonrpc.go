// Package jsonrpc implements the Chain interface over a plain JSON-RPC 2.0 HTTP client, for nodes behind Basic
// Authentication configured with a secret.
package jsonrpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/rpc"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/powerman/rpc-codec/jsonrpc2"

	"github.com/tarancss/adpscan/lib/block/types"
)

// requestTimeout bounds the HTTP requests left behind by callers that gave up waiting.
const requestTimeout = 30 * time.Second

// codeInternal is the JSON-RPC code the client codec uses to report transport failures.
const codeInternal = -32603

// JSONRPC implements a connection to an ethereum-type chain.
type JSONRPC struct {
	name string
	dec  uint8
	c    *jsonrpc2.Client
}

// Init returns a client for the node at url, using secret for Basic Authentication if not empty. No request is
// made until the first query.
func Init(name, node, secret string, decimals uint8) (*JSONRPC, error) {
	u, err := url.Parse(node)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", types.ErrNoNode, node)
	}

	hc := &http.Client{Timeout: requestTimeout}
	doer := jsonrpc2.DoerFunc(func(req *http.Request) (*http.Response, error) {
		if secret != "" {
			req.Header.Add("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(secret)))
		}

		return hc.Do(req)
	})

	return &JSONRPC{name: name, dec: decimals, c: jsonrpc2.NewCustomHTTPClient(node, doer)}, nil
}

// Name returns the configured network name.
func (j *JSONRPC) Name() string {
	return j.name
}

// Decimals returns the number of decimals of the native unit.
func (j *JSONRPC) Decimals() uint8 {
	return j.dec
}

// Balance returns the native balance in smallest units at the latest block. The call is abandoned when ctx is done;
// its reply, if any, is then discarded.
func (j *JSONRPC) Balance(ctx context.Context, address common.Address) (*big.Int, error) {
	var res string

	call := j.c.Go("eth_getBalance", []interface{}{address.Hex(), "latest"}, &res, make(chan *rpc.Call, 1))

	select {
	case <-ctx.Done():
		return nil, types.Classify(ctx.Err())
	case <-call.Done:
	}

	if call.Error != nil {
		return nil, classify(call.Error)
	}

	bal, ok := new(big.Int).SetString(res, 0)
	if !ok {
		return nil, fmt.Errorf("%w: bad balance %q", types.ErrRPC, res)
	}

	return bal, nil
}

// Close ends a connection
func (j *JSONRPC) Close() {
	_ = j.c.Close()
}

// classify maps the errors of the client codec to the failure kinds. Transport failures come back as internal
// errors carrying the http.Client message.
func classify(err error) error {
	if errors.Is(err, rpc.ErrShutdown) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", types.ErrUnreachable, err)
	}

	var se rpc.ServerError
	if !errors.As(err, &se) {
		return types.Classify(err)
	}

	e := &jsonrpc2.Error{}
	if json.Unmarshal([]byte(se), e) != nil {
		return fmt.Errorf("%w: %w", types.ErrRPC, err)
	}

	if e.Code == codeInternal && strings.HasPrefix(e.Message, "Post ") {
		if strings.Contains(e.Message, "Client.Timeout") {
			return fmt.Errorf("%w: %w", types.ErrTimeout, e)
		}

		return fmt.Errorf("%w: %w", types.ErrUnreachable, e)
	}

	return fmt.Errorf("%w: %w", types.ErrRPC, e)
}
