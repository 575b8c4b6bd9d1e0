/*
Package singleton enforces "one live notification deployment" with a
PostgreSQL advisory lock.

At startup the process calls Acquire with the shared lock name. Exactly one
process across the fleet wins; the rest observe ok=false and exit cleanly.
The lock is session-scoped on a connection pinned for the process lifetime,
so a crashed or partitioned process loses the lock the moment its session
dies and a standby can take over. No orchestration layer has to know about
any of this.

	gate, ok, err := singleton.Acquire(ctx, db, singleton.LockName)
	if err != nil {
		return err
	}
	if !ok {
		// another deployment is live; this is a normal exit
		return nil
	}
	defer gate.Release(ctx)

Lock keys are FNV-64a hashes of the name, so producers in other languages
can compute the same key from the same string.
*/
package singleton
