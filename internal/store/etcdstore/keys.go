package etcdstore

import (
	"fmt"
	"math"
	"path"
)

// Key layout, grounded on the teacher's e2db/key prefix scheme but
// specialized to the two tables this registry needs instead of a generic
// reflection-driven model:
//
//   /lighthouse/clusters/<cluster_id>
//   /lighthouse/nodes/<cluster_id>/<version_name>/<version_number>/<inverted_ts>-<inverted_id>
//   /lighthouse/counters/surrogate_id
const (
	clusterPrefix  = "/lighthouse/clusters"
	nodePrefix     = "/lighthouse/nodes"
	surrogateIDKey = "/lighthouse/counters/surrogate_id"
)

func clusterKey(clusterID string) string {
	return path.Join(clusterPrefix, clusterID)
}

func nodeGroupPrefix(clusterID, versionName string, versionNumber int64) string {
	return path.Join(nodePrefix, clusterID, versionName, fmt.Sprintf("%d", versionNumber)) + "/"
}

// nodeKey orders lexicographically-ascending etcd range results by
// descending server_timestamp: invert the timestamp before zero-padding so
// that a larger server_timestamp sorts first. Ties are broken by id,
// inverted the same way, so the newest surrogate id among tied timestamps
// sorts first too, matching the tie-break rule in §4.4/§4.5.
func nodeKey(clusterID, versionName string, versionNumber, serverTimestamp, id int64) string {
	invTS := math.MaxInt64 - serverTimestamp
	invID := math.MaxInt64 - id
	return fmt.Sprintf("%s%020d-%020d", nodeGroupPrefix(clusterID, versionName, versionNumber), invTS, invID)
}
