// Package spawn launches dex's detached embedding worker process and
// signals it to stop. The sync orchestrator is the only caller: after a
// sync leaves pending (zero-vector) messages behind it starts a worker;
// before a force resync deletes rows it stops whatever worker is already
// running so the two processes never write at once.
package spawn
