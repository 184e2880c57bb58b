// Package repositories implements the session-keyed token stores behind [models.TokenStore].
//
// Key Implementations:
//   - [MemoryTokenStore] : Process-local map guarded by a RWMutex, lost on restart
//   - [SQLiteTokenStore] : session_tokens table created by the embedded migrations
//   - [RedisTokenStore] : One hash per session under a key prefix, expiring with the session
//
// [Open] selects an implementation from the [store] table of the config file.
package repositories
