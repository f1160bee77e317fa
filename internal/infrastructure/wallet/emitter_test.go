package wallet_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tdex-network/tdex-walletkit/internal/core/ports"
	"github.com/tdex-network/tdex-walletkit/internal/infrastructure/wallet"
)

func TestEmitter(t *testing.T) {
	emitter := wallet.NewEmitter()

	received := make([]string, 0)
	unsubscribeA := emitter.Subscribe(func(e ports.ConnectorEvent) {
		received = append(received, "a:"+e.Type.String())
	})
	unsubscribeB := emitter.Subscribe(func(e ports.ConnectorEvent) {
		received = append(received, "b:"+e.Type.String())
	})
	require.Equal(t, 2, emitter.NumOfSubscribers())

	emitter.Emit(ports.ConnectorEvent{Type: ports.ChainChanged, ChainID: 56})
	require.Equal(t, []string{"a:ChainChanged", "b:ChainChanged"}, received)

	unsubscribeA()
	unsubscribeA()
	require.Equal(t, 1, emitter.NumOfSubscribers())

	emitter.Emit(ports.ConnectorEvent{Type: ports.Disconnected})
	require.Equal(t, "b:Disconnected", received[len(received)-1])
	require.Len(t, received, 3)

	unsubscribeB()
	emitter.Emit(ports.ConnectorEvent{Type: ports.Disconnected})
	require.Len(t, received, 3)
	require.Zero(t, emitter.NumOfSubscribers())
}

func TestEmitterUnsubscribeFromHandler(t *testing.T) {
	emitter := wallet.NewEmitter()

	calls := 0
	var unsubscribe func()
	unsubscribe = emitter.Subscribe(func(ports.ConnectorEvent) {
		calls++
		unsubscribe()
	})

	emitter.Emit(ports.ConnectorEvent{Type: ports.AccountChanged})
	emitter.Emit(ports.ConnectorEvent{Type: ports.AccountChanged})
	require.Equal(t, 1, calls)
}
