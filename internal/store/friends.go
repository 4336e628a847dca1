package store

// Friend is a cached friend relation, keyed by the recipient user id.
type Friend struct {
	RecipientID string
	Status      FriendStatus
	CreatedAt   int64
}

// Friends caches friend relations. Inserting one also registers the
// embedded recipient snapshot in the Users store.
type Friends struct {
	root  *Store
	cache map[string]*Friend
}

// AddCache inserts or replaces a friend relation and caches its recipient.
func (f *Friends) AddCache(raw RawFriend) {
	tx := f.root.Begin()
	tx.AddFriend(raw)
	tx.Publish("store.friend_added", raw.Recipient.ID)
	tx.Commit()
}

// Get returns a copy of the friend relation for a user, or nil when absent.
func (f *Friends) Get(userID string) *Friend {
	f.root.mu.RLock()
	defer f.root.mu.RUnlock()
	fr := f.cache[userID]
	if fr == nil {
		return nil
	}
	c := *fr
	return &c
}

// Array returns every cached friend relation.
func (f *Friends) Array() []Friend {
	f.root.mu.RLock()
	defer f.root.mu.RUnlock()
	out := make([]Friend, 0, len(f.cache))
	for _, fr := range f.cache {
		out = append(out, *fr)
	}
	return out
}

// AddFriend caches a friend relation and its recipient snapshot.
func (t *Tx) AddFriend(raw RawFriend) {
	t.AddUser(raw.Recipient)
	t.s.Friends.cache[raw.Recipient.ID] = &Friend{
		RecipientID: raw.Recipient.ID,
		Status:      raw.Status,
		CreatedAt:   raw.CreatedAt,
	}
}

// RemoveFriend drops a friend relation. The recipient user stays cached.
func (t *Tx) RemoveFriend(userID string) {
	delete(t.s.Friends.cache, userID)
}
