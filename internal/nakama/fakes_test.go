package nakama

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

type testLogger struct {
	mu     *sync.Mutex
	lines  *[]string
	fields map[string]interface{}
}

func newTestLogger() *testLogger {
	return &testLogger{mu: &sync.Mutex{}, lines: &[]string{}, fields: map[string]interface{}{}}
}

func (l *testLogger) log(level, format string, v ...interface{}) {
	l.mu.Lock()
	*l.lines = append(*l.lines, level+" "+fmt.Sprintf(format, v...))
	l.mu.Unlock()
}

func (l *testLogger) Debug(format string, v ...interface{}) { l.log("debug", format, v...) }
func (l *testLogger) Info(format string, v ...interface{})  { l.log("info", format, v...) }
func (l *testLogger) Warn(format string, v ...interface{})  { l.log("warn", format, v...) }
func (l *testLogger) Error(format string, v ...interface{}) { l.log("error", format, v...) }

func (l *testLogger) WithField(key string, v interface{}) runtime.Logger {
	return l.WithFields(map[string]interface{}{key: v})
}

func (l *testLogger) WithFields(fields map[string]interface{}) runtime.Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &testLogger{mu: l.mu, lines: l.lines, fields: merged}
}

func (l *testLogger) Fields() map[string]interface{} { return l.fields }

type presence struct {
	userID, sessionID, username string
}

func (p presence) GetHidden() bool                   { return false }
func (p presence) GetPersistence() bool              { return false }
func (p presence) GetUsername() string               { return p.username }
func (p presence) GetStatus() string                 { return "" }
func (p presence) GetReason() runtime.PresenceReason { return runtime.PresenceReasonUnknown }
func (p presence) GetUserId() string                 { return p.userID }
func (p presence) GetSessionId() string              { return p.sessionID }
func (p presence) GetNodeId() string                 { return "node" }

type matchData struct {
	presence
	op   int64
	data []byte
}

func (d matchData) GetOpCode() int64      { return d.op }
func (d matchData) GetData() []byte       { return d.data }
func (d matchData) GetReliable() bool     { return true }
func (d matchData) GetReceiveTime() int64 { return 0 }

type sent struct {
	op       int64
	data     []byte
	to       []runtime.Presence
	reliable bool
}

type dispatcher struct {
	sent   []sent
	kicked []runtime.Presence
	labels []string
}

func (d *dispatcher) BroadcastMessage(op int64, data []byte, to []runtime.Presence, _ runtime.Presence, reliable bool) error {
	d.sent = append(d.sent, sent{op: op, data: data, to: to, reliable: reliable})
	return nil
}

func (d *dispatcher) BroadcastMessageDeferred(op int64, data []byte, to []runtime.Presence, sender runtime.Presence, reliable bool) error {
	return d.BroadcastMessage(op, data, to, sender, reliable)
}

func (d *dispatcher) MatchKick(presences []runtime.Presence) error {
	d.kicked = append(d.kicked, presences...)
	return nil
}

func (d *dispatcher) MatchLabelUpdate(label string) error {
	d.labels = append(d.labels, label)
	return nil
}

func (d *dispatcher) of(op int64) []sent {
	var out []sent
	for _, s := range d.sent {
		if s.op == op {
			out = append(out, s)
		}
	}
	return out
}

type storageKey struct{ collection, key, user string }

type walletCall struct {
	user      string
	changeset map[string]int64
	meta      map[string]interface{}
}

type leaderboardCall struct {
	id, owner, username string
	score               int64
}

// fakeNK implements the runtime calls the store makes. Anything else
// panics through the nil embedded interface.
type fakeNK struct {
	runtime.NakamaModule

	mu          sync.Mutex
	objects     map[storageKey]*api.StorageObject
	wallets     []walletCall
	leaderboard []leaderboardCall
	metadata    map[string]string
	signals     []string
	created     []map[string]interface{}
}

var _ runtime.NakamaModule = (*fakeNK)(nil)

func newFakeNK() *fakeNK {
	return &fakeNK{objects: map[storageKey]*api.StorageObject{}, metadata: map[string]string{}}
}

func (n *fakeNK) put(user, collection, key, value string) {
	n.objects[storageKey{collection, key, user}] = &api.StorageObject{
		Collection: collection, Key: key, UserId: user, Value: value, Version: "v0",
	}
}

func (n *fakeNK) get(user, collection, key string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if o, ok := n.objects[storageKey{collection, key, user}]; ok {
		return o.Value
	}
	return ""
}

func (n *fakeNK) StorageRead(_ context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []*api.StorageObject
	for _, r := range reads {
		if o, ok := n.objects[storageKey{r.Collection, r.Key, r.UserID}]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func (n *fakeNK) StorageWrite(_ context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	acks := make([]*api.StorageObjectAck, 0, len(writes))
	for _, w := range writes {
		k := storageKey{w.Collection, w.Key, w.UserID}
		if cur, ok := n.objects[k]; ok && w.Version != "" && w.Version != cur.Version {
			return nil, fmt.Errorf("version check failed")
		}
		n.objects[k] = &api.StorageObject{
			Collection: w.Collection, Key: w.Key, UserId: w.UserID, Value: w.Value, Version: "v1",
		}
		acks = append(acks, &api.StorageObjectAck{Collection: w.Collection, Key: w.Key, UserId: w.UserID})
	}
	return acks, nil
}

func (n *fakeNK) WalletUpdate(_ context.Context, userID string, changeset map[string]int64, metadata map[string]interface{}, _ bool) (map[string]int64, map[string]int64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.wallets = append(n.wallets, walletCall{user: userID, changeset: changeset, meta: metadata})
	return changeset, map[string]int64{}, nil
}

func (n *fakeNK) LeaderboardRecordWrite(_ context.Context, id, ownerID, username string, score, _ int64, _ map[string]interface{}, _ *int) (*api.LeaderboardRecord, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.leaderboard = append(n.leaderboard, leaderboardCall{id: id, owner: ownerID, username: username, score: score})
	return &api.LeaderboardRecord{}, nil
}

func (n *fakeNK) AccountGetId(_ context.Context, userID string) (*api.Account, error) {
	return &api.Account{User: &api.User{Id: userID, Metadata: n.metadata[userID]}}, nil
}

func (n *fakeNK) MatchCreate(_ context.Context, _ string, params map[string]interface{}) (string, error) {
	n.created = append(n.created, params)
	return "match-1.node", nil
}

func (n *fakeNK) MatchSignal(_ context.Context, id, data string) (string, error) {
	if id != "match-1.node" {
		return "", fmt.Errorf("match not found")
	}
	n.signals = append(n.signals, data)
	return `{"ok":true}`, nil
}

func (n *fakeNK) LeaderboardCreate(_ context.Context, id string, _ bool, _, _, _ string, _ map[string]interface{}) error {
	n.leaderboard = append(n.leaderboard, leaderboardCall{id: id})
	return nil
}

type initializer struct {
	runtime.Initializer
	matches map[string]func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule) (runtime.Match, error)
	rpcs    map[string]func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error)
}

func (i *initializer) RegisterMatch(name string, fn func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule) (runtime.Match, error)) error {
	i.matches[name] = fn
	return nil
}

func (i *initializer) RegisterRpc(id string, fn func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error)) error {
	i.rpcs[id] = fn
	return nil
}
