package nakama

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/gunzgo/server/internal/match"
	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
	"go.uber.org/zap"
)

// Storage layout shared with the account RPCs.
const (
	collCharacters = "characters"
	keyActive      = "active"
	keyList        = "list"
	collInventory  = "inventory"
	keyItems       = "items"

	walletBounty  = "bounty"
	LeaderboardXP = "xp_global"
)

// Store backs a match with Nakama storage, wallets and accounts.
type Store struct {
	nk    runtime.NakamaModule
	curve func(xp int) int
	now   func() time.Time
	log   *zap.Logger
}

var (
	_ match.Characters = (*Store)(nil)
	_ match.Ledger     = (*Store)(nil)
	_ match.Roles      = (*Store)(nil)
)

// NewStore wraps nk. curve maps experience to a level; nil leaves stored
// levels alone.
func NewStore(nk runtime.NakamaModule, curve func(xp int) int, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{nk: nk, curve: curve, now: time.Now, log: log}
}

type activeRef struct {
	CharID string `json:"charId"`
}

type storedCharacter struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	HP        *int           `json:"hp"`
	AP        *int           `json:"ap"`
	Equipment map[string]int `json:"equipment"`
}

// characterList keeps entries raw so fields this server does not know
// survive a rewrite.
type characterList struct {
	Characters []map[string]json.RawMessage `json:"characters"`
}

type inventoryItem struct {
	InstanceID   string `json:"instanceId"`
	ItemID       int    `json:"itemId"`
	Count        int    `json:"count"`
	PurchaseTime int64  `json:"purchaseTime"`
	ExpireTime   *int64 `json:"expireTime"`
}

type inventory struct {
	Items []inventoryItem `json:"items"`
}

// read fetches the user's objects in one collection, keyed by object key.
func (s *Store) read(ctx context.Context, userID, collection string, keys ...string) (map[string]*api.StorageObject, error) {
	reads := make([]*runtime.StorageRead, 0, len(keys))
	for _, k := range keys {
		reads = append(reads, &runtime.StorageRead{Collection: collection, Key: k, UserID: userID})
	}
	objs, err := s.nk.StorageRead(ctx, reads)
	if err != nil {
		return nil, fmt.Errorf("storage read %s: %w", collection, err)
	}
	out := make(map[string]*api.StorageObject, len(objs))
	for _, o := range objs {
		out[o.Key] = o
	}
	return out, nil
}

func (s *Store) write(ctx context.Context, userID, collection, key, version string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, err = s.nk.StorageWrite(ctx, []*runtime.StorageWrite{{
		Collection:      collection,
		Key:             key,
		UserID:          userID,
		Value:           string(data),
		Version:         version,
		PermissionRead:  1,
		PermissionWrite: 0,
	}})
	if err != nil {
		return fmt.Errorf("storage write %s/%s: %w", collection, key, err)
	}
	return nil
}

func activeID(objs map[string]*api.StorageObject) string {
	o, ok := objs[keyActive]
	if !ok {
		return ""
	}
	var ref activeRef
	if err := json.Unmarshal([]byte(o.Value), &ref); err != nil {
		return ""
	}
	return ref.CharID
}

func decodeList(objs map[string]*api.StorageObject) (*characterList, string, error) {
	o, ok := objs[keyList]
	if !ok {
		return &characterList{}, "", nil
	}
	var list characterList
	if err := json.Unmarshal([]byte(o.Value), &list); err != nil {
		return nil, "", fmt.Errorf("character list: %w", err)
	}
	return &list, o.Version, nil
}

func entryID(e map[string]json.RawMessage) string {
	var id string
	json.Unmarshal(e["id"], &id)
	return id
}

// ActiveCharacter returns the active character, or the first one when
// none is marked.
func (s *Store) ActiveCharacter(ctx context.Context, userID string) (*match.Character, error) {
	objs, err := s.read(ctx, userID, collCharacters, keyActive, keyList)
	if err != nil {
		return nil, err
	}
	list, _, err := decodeList(objs)
	if err != nil || len(list.Characters) == 0 {
		return nil, err
	}
	entry := list.Characters[0]
	if id := activeID(objs); id != "" {
		for _, e := range list.Characters {
			if entryID(e) == id {
				entry = e
				break
			}
		}
	}
	raw, _ := json.Marshal(entry)
	var c storedCharacter
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("character %s: %w", entryID(entry), err)
	}
	return &match.Character{ID: c.ID, HP: c.HP, AP: c.AP, Equipment: c.Equipment}, nil
}

// AddBounty credits the wallet and records a ledger entry.
func (s *Store) AddBounty(ctx context.Context, userID string, amount int, meta map[string]any) error {
	if amount <= 0 {
		return nil
	}
	if _, _, err := s.nk.WalletUpdate(ctx, userID, map[string]int64{walletBounty: int64(amount)}, meta, true); err != nil {
		return fmt.Errorf("wallet update %s: %w", userID, err)
	}
	return nil
}

// AddXP credits the active character and posts its total to the xp
// leaderboard. Users without an active character are skipped.
func (s *Store) AddXP(ctx context.Context, userID string, xp int) error {
	if xp <= 0 {
		return nil
	}
	objs, err := s.read(ctx, userID, collCharacters, keyActive, keyList)
	if err != nil {
		return err
	}
	id := activeID(objs)
	if id == "" {
		return nil
	}
	list, version, err := decodeList(objs)
	if err != nil {
		return err
	}
	var entry map[string]json.RawMessage
	for _, e := range list.Characters {
		if entryID(e) == id {
			entry = e
			break
		}
	}
	if entry == nil {
		return nil
	}

	var total int64
	json.Unmarshal(entry["xp"], &total)
	total += int64(xp)
	entry["xp"] = json.RawMessage(strconv.FormatInt(total, 10))
	if s.curve != nil {
		entry["level"] = json.RawMessage(strconv.Itoa(s.curve(int(total))))
	}
	if err := s.write(ctx, userID, collCharacters, keyList, version, list); err != nil {
		return err
	}

	var name string
	json.Unmarshal(entry["name"], &name)
	if _, err := s.nk.LeaderboardRecordWrite(ctx, LeaderboardXP, userID, name, total, 0, nil, nil); err != nil {
		s.log.Debug("xp leaderboard write failed", zap.String("user", userID), zap.Error(err))
	}
	return nil
}

// GrantItem stacks a unit onto the user's inventory, adding a new instance
// when the item is not held yet.
func (s *Store) GrantItem(ctx context.Context, userID string, itemID int) error {
	objs, err := s.read(ctx, userID, collInventory, keyItems)
	if err != nil {
		return err
	}
	var (
		inv     inventory
		version string
	)
	if o, ok := objs[keyItems]; ok {
		if err := json.Unmarshal([]byte(o.Value), &inv); err != nil {
			return fmt.Errorf("inventory: %w", err)
		}
		version = o.Version
	}
	stacked := false
	for i := range inv.Items {
		if inv.Items[i].ItemID == itemID {
			inv.Items[i].Count++
			stacked = true
			break
		}
	}
	if !stacked {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		inv.Items = append(inv.Items, inventoryItem{
			InstanceID:   id.String(),
			ItemID:       itemID,
			Count:        1,
			PurchaseTime: s.now().UnixMilli(),
		})
	}
	return s.write(ctx, userID, collInventory, keyItems, version, inv)
}

// Role reads the role from account metadata. Numeric roles use the account
// service scale.
func (s *Store) Role(ctx context.Context, userID string) (string, error) {
	acc, err := s.nk.AccountGetId(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("account %s: %w", userID, err)
	}
	if acc.GetUser().GetMetadata() == "" {
		return "", nil
	}
	var md struct {
		Role any `json:"role"`
	}
	if err := json.Unmarshal([]byte(acc.GetUser().GetMetadata()), &md); err != nil {
		return "", nil
	}
	switch r := md.Role.(type) {
	case string:
		return r, nil
	case float64:
		return roleName(int(r)), nil
	}
	return "", nil
}

func roleName(n int) string {
	switch n {
	case 1:
		return "moderator"
	case 2:
		return match.RoleAdmin
	case 3:
		return match.RoleDeveloper
	}
	return match.RolePlayer
}
