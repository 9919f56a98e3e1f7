package persistence

import (
	"encoding/binary"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/samyama-ai/samyama-graph-sub001/internal/graphval"
	"github.com/samyama-ai/samyama-graph-sub001/internal/samerr"
)

// KV is the materialized keyed store: one top-level bucket per tenant,
// each holding "nodes", "edges", and "meta" sub-buckets. Keying everything
// under the tenant bucket makes cross-tenant reads impossible by
// construction.
type KV struct {
	db *bolt.DB
}

const (
	bucketNodes = "nodes"
	bucketEdges = "edges"
	bucketMeta  = "meta"

	metaKeyVersion     = "version"
	metaKeyLastApplied = "last_applied"
)

// OpenKV opens (creating if absent) the bbolt-backed keyed store at
// <dataDir>/graph.db, creating dataDir itself if needed.
func OpenKV(dataDir string) (*KV, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, samerr.Wrap(samerr.CodeIoError, err, "creating keyed store dir %s", dataDir)
	}
	path := filepath.Join(dataDir, "graph.db")
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, samerr.Wrap(samerr.CodeIoError, err, "opening keyed store %s", path)
	}
	return &KV{db: db}, nil
}

func (kv *KV) Close() error {
	if err := kv.db.Close(); err != nil {
		return samerr.Wrap(samerr.CodeIoError, err, "closing keyed store")
	}
	return nil
}

func (kv *KV) tenantBucket(tx *bolt.Tx, tenant graphval.TenantId, create bool) (*bolt.Bucket, error) {
	var root *bolt.Bucket
	var err error
	if create {
		root, err = tx.CreateBucketIfNotExists([]byte(tenant))
	} else {
		root = tx.Bucket([]byte(tenant))
		if root == nil {
			return nil, samerr.New(samerr.CodeNotFound, "tenant %q has no persisted state", tenant)
		}
	}
	if err != nil {
		return nil, samerr.Wrap(samerr.CodeStorageError, err, "opening tenant bucket %q", tenant)
	}
	return root, nil
}

func (kv *KV) subBucket(root *bolt.Bucket, name string, create bool) (*bolt.Bucket, error) {
	if create {
		b, err := root.CreateBucketIfNotExists([]byte(name))
		if err != nil {
			return nil, samerr.Wrap(samerr.CodeStorageError, err, "opening bucket %q", name)
		}
		return b, nil
	}
	b := root.Bucket([]byte(name))
	if b == nil {
		return nil, samerr.New(samerr.CodeNotFound, "bucket %q not found", name)
	}
	return b, nil
}

// PutNode writes a node's serialized form under nodes/{id}.
func (kv *KV) PutNode(tenant graphval.TenantId, id graphval.NodeId, data []byte) error {
	return kv.db.Update(func(tx *bolt.Tx) error {
		root, err := kv.tenantBucket(tx, tenant, true)
		if err != nil {
			return err
		}
		nodes, err := kv.subBucket(root, bucketNodes, true)
		if err != nil {
			return err
		}
		return nodes.Put(idKey(uint64(id)), data)
	})
}

// DeleteNode removes nodes/{id}.
func (kv *KV) DeleteNode(tenant graphval.TenantId, id graphval.NodeId) error {
	return kv.db.Update(func(tx *bolt.Tx) error {
		root, err := kv.tenantBucket(tx, tenant, true)
		if err != nil {
			return err
		}
		nodes, err := kv.subBucket(root, bucketNodes, true)
		if err != nil {
			return err
		}
		return nodes.Delete(idKey(uint64(id)))
	})
}

// PutEdge writes an edge's serialized form under edges/{id}.
func (kv *KV) PutEdge(tenant graphval.TenantId, id graphval.EdgeId, data []byte) error {
	return kv.db.Update(func(tx *bolt.Tx) error {
		root, err := kv.tenantBucket(tx, tenant, true)
		if err != nil {
			return err
		}
		edges, err := kv.subBucket(root, bucketEdges, true)
		if err != nil {
			return err
		}
		return edges.Put(idKey(uint64(id)), data)
	})
}

// DeleteEdge removes edges/{id}.
func (kv *KV) DeleteEdge(tenant graphval.TenantId, id graphval.EdgeId) error {
	return kv.db.Update(func(tx *bolt.Tx) error {
		root, err := kv.tenantBucket(tx, tenant, true)
		if err != nil {
			return err
		}
		edges, err := kv.subBucket(root, bucketEdges, true)
		if err != nil {
			return err
		}
		return edges.Delete(idKey(uint64(id)))
	})
}

// ForEachNode iterates every materialized node for tenant.
func (kv *KV) ForEachNode(tenant graphval.TenantId, fn func(id graphval.NodeId, data []byte) error) error {
	return kv.db.View(func(tx *bolt.Tx) error {
		root, err := kv.tenantBucket(tx, tenant, false)
		if err != nil {
			if samerr.Is(err, samerr.CodeNotFound) {
				return nil
			}
			return err
		}
		nodes, err := kv.subBucket(root, bucketNodes, false)
		if err != nil {
			if samerr.Is(err, samerr.CodeNotFound) {
				return nil
			}
			return err
		}
		return nodes.ForEach(func(k, v []byte) error {
			return fn(graphval.NodeId(binary.BigEndian.Uint64(k)), append([]byte(nil), v...))
		})
	})
}

// ForEachEdge iterates every materialized edge for tenant.
func (kv *KV) ForEachEdge(tenant graphval.TenantId, fn func(id graphval.EdgeId, data []byte) error) error {
	return kv.db.View(func(tx *bolt.Tx) error {
		root, err := kv.tenantBucket(tx, tenant, false)
		if err != nil {
			if samerr.Is(err, samerr.CodeNotFound) {
				return nil
			}
			return err
		}
		edges, err := kv.subBucket(root, bucketEdges, false)
		if err != nil {
			if samerr.Is(err, samerr.CodeNotFound) {
				return nil
			}
			return err
		}
		return edges.ForEach(func(k, v []byte) error {
			return fn(graphval.EdgeId(binary.BigEndian.Uint64(k)), append([]byte(nil), v...))
		})
	})
}

// Tenants lists every tenant with persisted state.
func (kv *KV) Tenants() ([]graphval.TenantId, error) {
	var out []graphval.TenantId
	err := kv.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			out = append(out, graphval.TenantId(name))
			return nil
		})
	})
	if err != nil {
		return nil, samerr.Wrap(samerr.CodeStorageError, err, "listing tenants")
	}
	return out, nil
}

// DeleteTenant drops every bucket for tenant, used by the DeleteGraph
// request.
func (kv *KV) DeleteTenant(tenant graphval.TenantId) error {
	return kv.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(tenant)) == nil {
			return nil
		}
		return tx.DeleteBucket([]byte(tenant))
	})
}

// SetLastApplied records meta/last_applied for tenant.
func (kv *KV) SetLastApplied(tenant graphval.TenantId, seq uint64) error {
	return kv.setMetaUint(tenant, metaKeyLastApplied, seq)
}

// LastApplied reads meta/last_applied for tenant, 0 if unset.
func (kv *KV) LastApplied(tenant graphval.TenantId) (uint64, error) {
	return kv.getMetaUint(tenant, metaKeyLastApplied)
}

// SetVersion records meta/version for tenant.
func (kv *KV) SetVersion(tenant graphval.TenantId, version graphval.Version) error {
	return kv.setMetaUint(tenant, metaKeyVersion, uint64(version))
}

// Version reads meta/version for tenant, 0 if unset.
func (kv *KV) Version(tenant graphval.TenantId) (graphval.Version, error) {
	v, err := kv.getMetaUint(tenant, metaKeyVersion)
	return graphval.Version(v), err
}

func (kv *KV) setMetaUint(tenant graphval.TenantId, key string, v uint64) error {
	return kv.db.Update(func(tx *bolt.Tx) error {
		root, err := kv.tenantBucket(tx, tenant, true)
		if err != nil {
			return err
		}
		meta, err := kv.subBucket(root, bucketMeta, true)
		if err != nil {
			return err
		}
		return meta.Put([]byte(key), idKey(v))
	})
}

func (kv *KV) getMetaUint(tenant graphval.TenantId, key string) (uint64, error) {
	var v uint64
	err := kv.db.View(func(tx *bolt.Tx) error {
		root, err := kv.tenantBucket(tx, tenant, false)
		if err != nil {
			if samerr.Is(err, samerr.CodeNotFound) {
				return nil
			}
			return err
		}
		meta, err := kv.subBucket(root, bucketMeta, false)
		if err != nil {
			if samerr.Is(err, samerr.CodeNotFound) {
				return nil
			}
			return err
		}
		data := meta.Get([]byte(key))
		if data == nil {
			return nil
		}
		v = binary.BigEndian.Uint64(data)
		return nil
	})
	return v, err
}

func idKey(id uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, id)
	return buf
}
