package plugin

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/mezonai/ppy/client"
	"github.com/mezonai/ppy/client/chaintest"
	"github.com/mezonai/ppy/errors"
	"github.com/mezonai/ppy/events"
	"github.com/mezonai/ppy/jsonx"
	"github.com/mezonai/ppy/keypair"
	"github.com/mezonai/ppy/keys"
	"github.com/mezonai/ppy/memo"
	"github.com/mezonai/ppy/ops"
	"github.com/mezonai/ppy/types"
	"github.com/mezonai/ppy/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testToken = types.Token{Blockchain: types.Blockchain, Symbol: "TEST", Decimals: 5}

type testEnv struct {
	plugin   *PPY
	node     *chaintest.Node
	keychain *keypair.Service
	sender   types.Account
}

func newTestEnv(t *testing.T, mutate func(*Config, *Deps)) *testEnv {
	t.Helper()
	node := chaintest.NewNode()
	node.AddAccount("init0", "password")
	node.AddAccount("init1", "secret")
	node.SetBalance("init0", ops.CoreAssetID, 150000)

	store, err := keypair.OpenStore(context.Background(), keypair.StoreConfig{Backend: "memory"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	keychain := keypair.NewService(store, nil, keys.DefaultPrefix)
	_, err = keychain.Import(context.Background(), "init0", keypair.BundleFromLogin("init0", "password"))
	require.NoError(t, err)

	cfg := DefaultConfig()
	deps := Deps{Chain: node.NewClient(t), KeyPairs: keychain}
	if mutate != nil {
		mutate(&cfg, &deps)
	}
	p, err := New(cfg, deps)
	require.NoError(t, err)

	active := keys.GenerateKeys("init0", "password", nil, keys.DefaultPrefix).PubKeys[keys.RoleActive]
	return &testEnv{
		plugin:   p,
		node:     node,
		keychain: keychain,
		sender:   types.Account{Name: "init0", PublicKey: active, Authority: keys.RoleActive, Network: EndorsedNetwork()},
	}
}

func (e *testEnv) transfer(amount string) types.TransferParams {
	return types.TransferParams{Account: e.sender, To: "init1", Amount: amount, Token: testToken}
}

// silentTransfer opts out of the popup so the keychain signs directly.
func (e *testEnv) silentTransfer(amount string) types.TransferParams {
	params := e.transfer(amount)
	prompt := false
	params.PromptForSignature = &prompt
	return params
}

func TestTransfer_Keychain(t *testing.T) {
	env := newTestEnv(t, nil)

	res, err := env.plugin.Transfer(context.Background(), env.silentTransfer("1.5"))
	require.NoError(t, err)
	assert.Len(t, res.ID, 40)
	assert.NotEmpty(t, res.Buffer)

	broadcasts := env.node.Broadcasts()
	require.Len(t, broadcasts, 1)
	op, ok := broadcasts[0].Operations[0].(*ops.TransferOperation)
	require.True(t, ok)
	assert.Equal(t, ops.Int64(150000), op.Amount.Amount)
	assert.Equal(t, ops.Int64(chaintest.DefaultTransferFee), op.Fee.Amount)
	assert.True(t, env.plugin.Tracker().WasBroadcast(res.ID))

	buf, err := hex.DecodeString(res.Buffer)
	require.NoError(t, err)
	assert.Equal(t, res.ID, ops.TransactionID(buf))
}

func TestTransfer_InjectedKeys(t *testing.T) {
	env := newTestEnv(t, func(_ *Config, d *Deps) { d.KeyPairs = nil })
	login := keys.GenerateKeys("init0", "password", nil, keys.DefaultPrefix)

	params := env.transfer("0.00001")
	params.Account.PublicKey = ""
	params.Memo = "thanks"
	params.EncryptMemo = true
	params.Keys = &types.TransferKeys{
		Active: login.PrivKeys[keys.RoleActive].Wif(),
		Memo:   login.PrivKeys[keys.RoleMemo].Wif(),
	}
	_, err := env.plugin.Transfer(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, env.node.Broadcasts(), 1)
}

func TestTransfer_EncryptedMemoFromKeychain(t *testing.T) {
	env := newTestEnv(t, nil)

	params := env.silentTransfer("1")
	params.Memo = "invoice 42"
	params.EncryptMemo = true
	_, err := env.plugin.Transfer(context.Background(), params)
	require.NoError(t, err)

	op := env.node.Broadcasts()[0].Operations[0].(*ops.TransferOperation)
	require.NotNil(t, op.Memo)

	recipient := keys.GenerateKeys("init1", "secret", nil, keys.DefaultPrefix).PrivKeys[keys.RoleMemo]
	from, err := keys.PublicKeyFromString(op.Memo.From, keys.DefaultPrefix)
	require.NoError(t, err)
	plain, err := memo.Decrypt(recipient, from, uint64(op.Memo.Nonce), op.Memo.Message)
	require.NoError(t, err)
	assert.Equal(t, "invoice 42", string(plain))
}

func TestTransfer_Rejections(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	params := env.transfer("1")
	params.To = "Not-A-Name"
	_, err := env.plugin.Transfer(ctx, params)
	assert.ErrorIs(t, err, errors.ErrInvalidRecipient)

	_, err = env.plugin.Transfer(ctx, env.transfer("one"))
	assert.ErrorIs(t, err, errors.ErrInvalidAmount)

	_, err = env.plugin.Transfer(ctx, env.transfer(""))
	assert.ErrorIs(t, err, errors.ErrMissingInput)

	params = env.transfer("1")
	params.To = "nobody"
	_, err = env.plugin.Transfer(ctx, params)
	assert.ErrorIs(t, err, errors.ErrNotFound)

	assert.Empty(t, env.node.Broadcasts())
}

func TestTransfer_BroadcastRejected(t *testing.T) {
	env := newTestEnv(t, nil)
	env.node.FailMethod("broadcast_transaction_with_callback", "insufficient balance")

	_, err := env.plugin.Transfer(context.Background(), env.silentTransfer("1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrBroadcastRejected)
	var be *errors.BroadcastError
	require.ErrorAs(t, err, &be)
	assert.NotEmpty(t, be.Digest)
	assert.Contains(t, err.Error(), "insufficient balance")
}

func TestTransfer_PopupApproved(t *testing.T) {
	bus := events.NewEventBus()
	env := newTestEnv(t, func(_ *Config, d *Deps) { d.Events = bus })
	_, requests := bus.Subscribe()

	seen := make(chan types.PopupRequest, 1)
	go func() {
		req := <-requests
		seen <- req
		bus.Approve(req.ID)
	}()

	params := env.transfer("1")
	_, err := env.plugin.Transfer(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, env.node.Broadcasts(), 1)

	req := <-seen
	assert.Equal(t, types.PopupSignature, req.Type)
	assert.Equal(t, env.sender.PublicKey, req.PublicKey)
	assert.Equal(t, []string{"init0"}, req.Payload.Participants)
	assert.Equal(t, DefaultOrigin, req.Payload.Origin)
	assert.NotEmpty(t, req.Payload.Buf)
	assert.NotEmpty(t, req.Payload.Transaction)
}

func TestTransfer_PopupRejected(t *testing.T) {
	bus := events.NewEventBus()
	env := newTestEnv(t, func(_ *Config, d *Deps) { d.Events = bus })
	_, requests := bus.Subscribe()
	go func() {
		req := <-requests
		bus.Reject(req.ID, "user declined")
	}()

	params := env.transfer("1")
	_, err := env.plugin.Transfer(context.Background(), params)
	assert.ErrorIs(t, err, errors.ErrSignatureRejected)
	assert.Empty(t, env.node.Broadcasts())
}

func TestTransfer_KeychainNeedsApprovalByDefault(t *testing.T) {
	t.Run("nobody listening", func(t *testing.T) {
		bus := events.NewEventBus()
		env := newTestEnv(t, func(_ *Config, d *Deps) { d.Events = bus })

		_, err := env.plugin.Transfer(context.Background(), env.transfer("1"))
		assert.ErrorIs(t, err, errors.ErrSignatureRejected)
		assert.Empty(t, env.node.Broadcasts())
	})

	t.Run("no event service", func(t *testing.T) {
		env := newTestEnv(t, nil)

		_, err := env.plugin.Transfer(context.Background(), env.transfer("1"))
		assert.ErrorIs(t, err, errors.ErrSignatureRejected)
		assert.Empty(t, env.node.Broadcasts())
	})

	t.Run("unanswered popup times out", func(t *testing.T) {
		bus := events.NewEventBus()
		env := newTestEnv(t, func(c *Config, d *Deps) {
			c.PopupTimeout = 50 * time.Millisecond
			d.Events = bus
		})
		bus.Subscribe()

		var params types.TransferParams
		require.NoError(t, jsonx.Unmarshal([]byte(`{"account":{"name":"init0","publicKey":"`+env.sender.PublicKey+`"},"to":"init1","amount":"1","token":{"symbol":"TEST","decimals":5}}`), &params))
		assert.True(t, params.Prompts())

		_, err := env.plugin.Transfer(context.Background(), params)
		assert.ErrorIs(t, err, errors.ErrTimeout)
		assert.Empty(t, env.node.Broadcasts())
	})
}

func TestTransfer_DecimalsFromAsset(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	token := types.Token{Symbol: "TEST", Contract: "1.3.0"}

	bal, err := env.plugin.BalanceFor(ctx, env.sender, token)
	require.NoError(t, err)
	assert.Equal(t, "1.50000", bal.Amount)
	assert.Equal(t, 5, bal.Decimals)

	params := env.silentTransfer("1.5")
	params.Token = token
	_, err = env.plugin.Transfer(ctx, params)
	require.NoError(t, err)

	params = env.silentTransfer("1")
	params.Token = token
	_, err = env.plugin.Transfer(ctx, params)
	require.NoError(t, err)

	broadcasts := env.node.Broadcasts()
	require.Len(t, broadcasts, 2)
	first := broadcasts[0].Operations[0].(*ops.TransferOperation)
	second := broadcasts[1].Operations[0].(*ops.TransferOperation)
	assert.Equal(t, ops.Int64(150000), first.Amount.Amount)
	assert.Equal(t, ops.Int64(100000), second.Amount.Amount)
	assert.Equal(t, "1.00000", utils.FromChainAmount(int64(second.Amount.Amount), bal.Decimals))

	params.Token = types.Token{Symbol: "NOPE"}
	_, err = env.plugin.Transfer(ctx, params)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestSignerWithPopup_Timeout(t *testing.T) {
	bus := events.NewEventBus()
	env := newTestEnv(t, func(c *Config, d *Deps) {
		c.PopupTimeout = 50 * time.Millisecond
		d.Events = bus
	})
	bus.Subscribe()

	_, err := env.plugin.SignerWithPopup(context.Background(), types.SignPayload{Data: "x"}, env.sender)
	assert.ErrorIs(t, err, errors.ErrTimeout)
	assert.Eventually(t, func() bool { return bus.PendingCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestSignerWithPopup_NoEventService(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.plugin.SignerWithPopup(context.Background(), types.SignPayload{}, env.sender)
	assert.ErrorIs(t, err, errors.ErrSignatureRejected)
}

type identityStore struct{}

func (identityStore) IdentityKey() string { return "identity-pub" }

type fakeHardware struct {
	calls int
	sig   []byte
}

func (h *fakeHardware) Sign(_ context.Context, _ types.Account, _ types.SignPayload) ([]byte, error) {
	h.calls++
	return h.sig, nil
}

func TestSignerWithPopup_HardwareKey(t *testing.T) {
	bus := events.NewEventBus()
	hw := &fakeHardware{sig: make([]byte, keys.SignatureSize)}
	env := newTestEnv(t, func(_ *Config, d *Deps) {
		d.Events = bus
		d.Hardware = hw
		d.Store = identityStore{}
	})
	device := keys.PrivateKeyFromSeed("ledger").PublicKey().String(keys.DefaultPrefix)
	_, err := env.keychain.ImportHardware(context.Background(), "cold", device, "ledger-nano")
	require.NoError(t, err)

	_, requests := bus.Subscribe()
	go func() {
		req := <-requests
		assert.Equal(t, "identity-pub", req.Payload.IdentityKey)
		bus.Approve(req.ID)
	}()

	account := types.Account{Name: "cold", PublicKey: device, Network: EndorsedNetwork()}
	sig, err := env.plugin.SignerWithPopup(context.Background(), types.SignPayload{Data: "x"}, account)
	require.NoError(t, err)
	assert.Len(t, sig, keys.SignatureSize)
	assert.Equal(t, 1, hw.calls)
}

func TestSigner(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	pub, err := keys.PublicKeyFromString(env.sender.PublicKey, keys.DefaultPrefix)
	require.NoError(t, err)

	sig, err := env.plugin.Signer(ctx, types.SignPayload{Data: "hello"}, env.sender.PublicKey, true, false)
	require.NoError(t, err)
	digest := sha256.Sum256([]byte("hello"))
	assert.True(t, keys.VerifyDigest(sig, digest[:], pub))

	hash := sha256.Sum256([]byte("prehashed"))
	sig, err = env.plugin.Signer(ctx, types.SignPayload{Data: hex.EncodeToString(hash[:])}, env.sender.PublicKey, true, true)
	require.NoError(t, err)
	assert.True(t, keys.VerifyDigest(sig, hash[:], pub))

	buf := []byte{1, 2, 3}
	sig, err = env.plugin.Signer(ctx, types.SignPayload{Buf: buf}, env.sender.PublicKey, false, false)
	require.NoError(t, err)
	bufDigest := sha256.Sum256(buf)
	assert.True(t, keys.VerifyDigest(sig, bufDigest[:], pub))

	_, err = env.plugin.Signer(ctx, types.SignPayload{}, env.sender.PublicKey, false, false)
	assert.ErrorIs(t, err, errors.ErrMissingInput)

	stranger := keys.PrivateKeyFromSeed("stranger").PublicKey().String(keys.DefaultPrefix)
	_, err = env.plugin.Signer(ctx, types.SignPayload{Data: "hello"}, stranger, true, false)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestSigningService_Routing(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	hw := &fakeHardware{sig: []byte{9}}
	svc := NewSigningService(env.keychain, hw)
	svc.Register(env.plugin)

	sig, err := svc.Sign(ctx, EndorsedNetwork(), types.SignPayload{Data: "a"}, env.sender.PublicKey, true, false)
	require.NoError(t, err)
	assert.Len(t, sig, keys.SignatureSize)

	device := keys.PrivateKeyFromSeed("trezor").PublicKey().String(keys.DefaultPrefix)
	_, err = env.keychain.ImportHardware(ctx, "cold", device, "trezor")
	require.NoError(t, err)
	sig, err = svc.Sign(ctx, EndorsedNetwork(), types.SignPayload{Data: "a"}, device, true, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, sig)
	assert.Equal(t, 1, hw.calls)

	svc.Init(func(_ context.Context, _ types.Network, publicKey string, _ types.SignPayload, _, _ bool) ([]byte, error) {
		return []byte(publicKey), nil
	})
	sig, err = svc.Sign(ctx, EndorsedNetwork(), types.SignPayload{}, "injected", false, false)
	require.NoError(t, err)
	assert.Equal(t, []byte("injected"), sig)

	svc.Init(nil)
	_, err = svc.Sign(ctx, types.Network{Blockchain: "eos"}, types.SignPayload{Data: "a"}, env.sender.PublicKey, true, false)
	assert.ErrorIs(t, err, errors.ErrSignatureRejected)
}

func TestIsValidRecipient(t *testing.T) {
	p := newTestEnv(t, nil).plugin
	valid := []string{"init0", "abc", "peer-plays", "abc.def", "a1b2c3.d4e5"}
	for _, name := range valid {
		assert.True(t, p.IsValidRecipient(name), name)
	}
	invalid := []string{"", "ab", "1abc", "abc-", "ab--c", "Abc", "abc.de", "abc_d", "abc..def", string(make([]byte, 64))}
	for _, name := range invalid {
		assert.False(t, p.IsValidRecipient(name), name)
	}
}

func TestKeyHelpers(t *testing.T) {
	p := newTestEnv(t, nil).plugin
	login := keys.GenerateKeys("init0", "password", nil, keys.DefaultPrefix)
	wif := login.PrivKeys[keys.RoleActive].Wif()

	pub, err := p.PrivateToPublic(wif, "")
	require.NoError(t, err)
	assert.Equal(t, login.PubKeys[keys.RoleActive], pub)

	_, err = p.PrivateToPublic("garbage", "")
	assert.ErrorIs(t, err, errors.ErrInvalidKey)

	assert.True(t, p.ValidPrivateKey(wif))
	assert.False(t, p.ValidPrivateKey(wif[:40]))
	assert.True(t, p.ValidPublicKey(pub, ""))
	assert.False(t, p.ValidPublicKey(pub, "BTS"))

	buf, err := p.HexPrivateToBuffer(wif)
	require.NoError(t, err)
	assert.Len(t, buf, 32)
	back, err := p.BufferToHexPrivate(buf)
	require.NoError(t, err)
	assert.Equal(t, wif, back)
}

func TestMetadata(t *testing.T) {
	p := newTestEnv(t, nil).plugin
	account := types.Account{Name: "init0", PublicKey: "PPYkey"}

	assert.Equal(t, "ppy", p.Name())
	assert.Equal(t, "44'/194'/0'/0/", p.Bip())
	assert.Equal(t, "PeerplaysBlockchain", p.DefaultExplorer().Name)
	assert.Equal(t, "PPYkey", p.AccountFormatter(account))
	assert.Equal(t, types.ReturnableAccount{Name: "init0", Address: "PPYkey", Blockchain: "ppy"}, p.ReturnableAccount(account))
	assert.Empty(t, p.ContractPlaceholder())
	assert.False(t, p.UsesResources())
	assert.False(t, p.HasAccountActions())
	assert.True(t, p.AccountsAreImported())
	assert.False(t, p.HasUntouchableTokens())
	assert.Equal(t, DefaultDecimals, p.DefaultDecimals())

	token := p.DefaultToken()
	assert.Equal(t, "PPY", token.Symbol)
	assert.Equal(t, "ppy", token.Contract)
	assert.Equal(t, MainnetChainID, token.ChainID)

	endorsed := p.GetEndorsedNetwork()
	assert.Equal(t, "seed01.eifos.org", endorsed.Host)
	assert.True(t, p.IsEndorsedNetwork(endorsed))
	endorsed.ChainID = "beef"
	assert.False(t, p.IsEndorsedNetwork(endorsed))

	participants := p.ActionParticipants(types.SignPayload{Participants: []string{"init0"}})
	assert.Equal(t, []string{"init0"}, participants)
}

func TestBalances(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	token, err := env.plugin.BalanceFor(ctx, env.sender, testToken)
	require.NoError(t, err)
	assert.Equal(t, "1.50000", token.Amount)

	tokens, err := env.plugin.BalancesFor(ctx, env.sender, []types.Token{testToken, {Symbol: "BTF", Decimals: 4}})
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "1.50000", tokens[0].Amount)
	assert.Equal(t, "0.0000", tokens[1].Amount)

	_, err = env.plugin.BalanceFor(ctx, types.Account{}, testToken)
	assert.ErrorIs(t, err, errors.ErrMissingInput)
}

type slowChain struct {
	client.ChainAPI
}

func (slowChain) Ping(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(3 * time.Second):
		return nil
	}
}

func TestCheckNetwork(t *testing.T) {
	env := newTestEnv(t, func(c *Config, d *Deps) {
		c.NetworkCheckTimeout = 500 * time.Millisecond
		d.Dial = func(network types.Network) (client.ChainAPI, error) {
			if network.Host == "down.example" {
				return nil, errors.NewError(errors.ErrCodeRPCFailure, "dial refused")
			}
			return slowChain{}, nil
		}
	})
	ctx := context.Background()

	assert.True(t, env.plugin.CheckNetwork(ctx, EndorsedNetwork()))
	assert.False(t, env.plugin.CheckNetwork(ctx, types.Network{Protocol: "http", Host: "slow.example", Blockchain: "ppy"}))
	assert.False(t, env.plugin.CheckNetwork(ctx, types.Network{Protocol: "http", Host: "down.example", Blockchain: "ppy"}))

	id, err := env.plugin.GetChainID(ctx, EndorsedNetwork())
	require.NoError(t, err)
	assert.Equal(t, chaintest.ChainID, id)
}

func TestNew_RequiresChain(t *testing.T) {
	_, err := New(DefaultConfig(), Deps{})
	assert.ErrorIs(t, err, errors.ErrMissingInput)
}
