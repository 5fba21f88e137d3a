package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"poolwatch/internal/chain"
	"poolwatch/internal/streampb"
)

func TestDispatchRoutesPoolUpdateByOwner(t *testing.T) {
	var gotDex chain.DEXKind
	var called bool
	m := New("unused:0", Handlers{
		OnPoolUpdate: func(dex chain.DEXKind, u streampb.AccountUpdate) {
			called = true
			gotDex = dex
		},
	}, nil)

	m.dispatch(streampb.SubscribeUpdate{Account: &streampb.AccountUpdate{
		Owner: chain.PumpFunProgram.Bytes(),
	}})

	assert.True(t, called)
	assert.Equal(t, chain.PumpFun, gotDex)
}

func TestDispatchIgnoresPong(t *testing.T) {
	called := false
	m := New("unused:0", Handlers{
		OnPoolUpdate: func(chain.DEXKind, streampb.AccountUpdate) { called = true },
	}, nil)

	m.dispatch(streampb.SubscribeUpdate{Pong: &streampb.PongResponse{ID: 1}})
	assert.False(t, called)
}

func TestDispatchDropsUnknownOwner(t *testing.T) {
	called := false
	m := New("unused:0", Handlers{
		OnMetadataUpdate: func(streampb.AccountUpdate) { called = true },
	}, nil)

	var unknown chain.Address
	unknown[0] = 0xAB
	m.dispatch(streampb.SubscribeUpdate{Account: &streampb.AccountUpdate{Owner: unknown.Bytes()}})
	assert.False(t, called)
}

func TestDispatchRoutesMetadataAndToken2022AndSPLToken(t *testing.T) {
	var metaCalled, tokenCalled, splCalled bool
	m := New("unused:0", Handlers{
		OnMetadataUpdate:  func(streampb.AccountUpdate) { metaCalled = true },
		OnToken2022Update: func(streampb.AccountUpdate) { tokenCalled = true },
		OnSPLTokenUpdate:  func(streampb.AccountUpdate) { splCalled = true },
	}, nil)

	m.dispatch(streampb.SubscribeUpdate{Account: &streampb.AccountUpdate{Owner: chain.MetadataProgram.Bytes()}})
	m.dispatch(streampb.SubscribeUpdate{Account: &streampb.AccountUpdate{Owner: chain.Token2022Program.Bytes()}})
	m.dispatch(streampb.SubscribeUpdate{Account: &streampb.AccountUpdate{Owner: chain.SPLTokenProgram.Bytes()}})

	assert.True(t, metaCalled)
	assert.True(t, tokenCalled)
	assert.True(t, splCalled)
}
