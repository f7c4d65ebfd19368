package geo

import (
	"github.com/sheriffsale/auctionmap/internal/model"
)

// DefaultClusterFeet is the proximity threshold used when no override is
// configured.
const DefaultClusterFeet = 300

// ClusterRecords partitions records into proximity clusters using a
// single-seed greedy walk: each not-yet-visited record seeds a new cluster
// and claims every later unvisited record within thresholdFeet of the seed.
// Membership is measured against the seed only, so two members of the same
// cluster may be farther apart than the threshold. Records without
// coordinates are skipped; every coordinate-bearing record lands in exactly
// one cluster, including singletons.
func ClusterRecords(records []model.ResolvedRecord, thresholdFeet float64) []model.Cluster {
	if thresholdFeet <= 0 {
		thresholdFeet = DefaultClusterFeet
	}

	var clusters []model.Cluster
	visited := make(map[int]bool, len(records))

	for i := range records {
		seed := &records[i]
		if visited[i] || !seed.HasCoords() {
			continue
		}

		cluster := model.Cluster{*seed}
		visited[i] = true

		for j := i + 1; j < len(records); j++ {
			other := &records[j]
			if visited[j] || !other.HasCoords() {
				continue
			}
			d := HaversineFeet(*seed.Lat, *seed.Lng, *other.Lat, *other.Lng)
			if d <= thresholdFeet {
				cluster = append(cluster, *other)
				visited[j] = true
			}
		}

		clusters = append(clusters, cluster)
	}

	return clusters
}
