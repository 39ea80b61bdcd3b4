package unit

import (
	"context"
	"errors"

	"github.com/vk/qpugridgo/internal/kernel"
	"github.com/vk/qpugridgo/internal/qerr"
	"github.com/vk/qpugridgo/internal/transport"
)

// RemoteUnit is a network-hosted unit reached over the REST transport. The
// transport client is shared across all remote units in a registry.
type RemoteUnit struct {
	index    int
	backend  string
	endpoint string
	client   *transport.Client
}

// NewRemote builds a remote unit at the given endpoint.
func NewRemote(index int, backend, endpoint string, client *transport.Client) *RemoteUnit {
	return &RemoteUnit{index: index, backend: backend, endpoint: endpoint, client: client}
}

func (u *RemoteUnit) Index() int       { return u.index }
func (u *RemoteUnit) Kind() Kind       { return Remote }
func (u *RemoteUnit) Backend() string  { return u.backend }
func (u *RemoteUnit) Endpoint() string { return u.endpoint }

func (u *RemoteUnit) Run(ctx context.Context, inv kernel.Invocation) (kernel.Result, error) {
	res, err := u.client.Invoke(ctx, u.endpoint, inv)
	if err != nil {
		// Transport errors arrive classified; stamp the unit index on.
		var pe *qerr.Error
		if errors.As(err, &pe) && pe.Unit < 0 {
			pe.Unit = u.index
		}
		return nil, err
	}
	return res, nil
}
