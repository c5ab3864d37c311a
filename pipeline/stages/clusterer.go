package stages

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"strings"

	"github.com/davidleathers113/indexforge-sub000/document"
	"github.com/davidleathers113/indexforge-sub000/observability"
)

// Clusterer groups documents by body-vector similarity using k-means
// with an elbow heuristic for cluster count (spec §4.4), deterministic
// given the configured seed, grounded on
// original_source/src/utils/topic_clustering.py's
// TopicClusterer._get_optimal_clusters/_get_cluster_keywords.
type Clusterer struct {
	maxClusters    int
	minClusterSize int
	topKeywords    int
	seed           int64
	steps          StepRecorder
}

// NewClusterer builds the Clusterer stage.
func NewClusterer(maxClusters, minClusterSize, seed int, steps StepRecorder) *Clusterer {
	if maxClusters <= 0 {
		maxClusters = 5
	}
	if minClusterSize <= 0 {
		minClusterSize = 3
	}
	return &Clusterer{maxClusters: maxClusters, minClusterSize: minClusterSize, topKeywords: 5, seed: int64(seed), steps: steps}
}

func (c *Clusterer) Name() string { return "Clusterer" }

// clusterMember pairs a document with its position in the batch's
// vector slice.
type clusterMember struct {
	doc   *document.Document
	index int
}

// Process skips the stage entirely when no document in the batch has a
// body vector (spec §4.4: "Stage skipped on empty embedding set").
func (c *Clusterer) Process(ctx context.Context, batch []*document.Document) ([]*document.Document, error) {
	var members []clusterMember
	var vectors [][]float64
	for _, doc := range batch {
		if len(doc.Embeddings.Body) == 0 {
			continue
		}
		members = append(members, clusterMember{doc: doc, index: len(vectors)})
		vectors = append(vectors, toFloat64(doc.Embeddings.Body))
	}
	if len(vectors) == 0 {
		return batch, nil
	}

	k := c.optimalClusters(vectors)
	labels, centroids := kmeans(vectors, k, c.seed)

	clusterIndices := make(map[int][]int)
	for i, label := range labels {
		clusterIndices[label] = append(clusterIndices[label], i)
	}

	for _, m := range members {
		label := labels[m.index]
		centroid := centroids[label]
		clusterMembers := clusterIndices[label]

		keywords := c.clusterKeywords(vectors, members, clusterMembers, centroid)
		similarity := cosineSimilarity(vectors[m.index], centroid)

		if m.doc.Metadata.Extra == nil {
			m.doc.Metadata.Extra = map[string]interface{}{}
		}
		m.doc.Metadata.Extra["clustering"] = map[string]interface{}{
			"cluster_id":             label,
			"cluster_size":           len(clusterMembers),
			"keywords":               keywords,
			"similarity_to_centroid": similarity,
		}
		recordStep(c.steps, m.doc.ID, c.Name(), observability.StatusSuccess,
			map[string]interface{}{"cluster_id": label}, nil, "")
	}

	return batch, nil
}

// clusterKeywords ranks each cluster member's own body vector by
// cosine similarity to the cluster centroid and extracts words from the
// top-K members' bodies, deduplicated and score-ordered for
// determinism (unlike the Python reference's unordered set truncation).
func (c *Clusterer) clusterKeywords(vectors [][]float64, members []clusterMember, clusterMembers []int, centroid []float64) []string {
	type scored struct {
		idx   int
		score float64
	}
	memberByVecIdx := make(map[int]*document.Document, len(members))
	for _, m := range members {
		memberByVecIdx[m.index] = m.doc
	}

	scoredMembers := make([]scored, 0, len(clusterMembers))
	for _, idx := range clusterMembers {
		scoredMembers = append(scoredMembers, scored{idx: idx, score: cosineSimilarity(vectors[idx], centroid)})
	}
	sort.Slice(scoredMembers, func(i, j int) bool { return scoredMembers[i].score > scoredMembers[j].score })

	topK := c.topKeywords
	if topK > len(scoredMembers) {
		topK = len(scoredMembers)
	}

	seen := make(map[string]struct{})
	var keywords []string
	for _, s := range scoredMembers[:topK] {
		doc := memberByVecIdx[s.idx]
		if doc == nil {
			continue
		}
		for _, w := range strings.Fields(strings.ToLower(doc.Content.Body)) {
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			keywords = append(keywords, w)
			if len(keywords) >= c.topKeywords {
				break
			}
		}
		if len(keywords) >= c.topKeywords {
			break
		}
	}
	return keywords
}

func (c *Clusterer) optimalClusters(vectors [][]float64) int {
	if len(vectors) < c.minClusterSize {
		return 1
	}
	maxK := c.maxClusters
	if budget := len(vectors) / c.minClusterSize; budget < maxK {
		maxK = budget
	}
	if maxK <= 1 {
		return 1
	}

	inertias := make([]float64, maxK)
	for k := 1; k <= maxK; k++ {
		_, _, inertia := kmeansWithInertia(vectors, k, c.seed)
		inertias[k-1] = inertia
	}

	bestIdx := 0
	bestDiff := inertias[1] - inertias[0]
	for i := 1; i < maxK-1; i++ {
		d := inertias[i+1] - inertias[i]
		if d < bestDiff {
			bestDiff = d
			bestIdx = i
		}
	}
	elbow := bestIdx + 1
	if elbow > maxK {
		elbow = maxK
	}
	if elbow < 1 {
		elbow = 1
	}
	return elbow
}

func kmeans(points [][]float64, k int, seed int64) (labels []int, centroids [][]float64) {
	labels, centroids, _ = kmeansWithInertia(points, k, seed)
	return labels, centroids
}

// kmeansWithInertia runs Lloyd's algorithm for a fixed iteration budget
// using an RNG seeded deterministically from seed, so repeated calls
// with the same inputs produce identical clusterings.
func kmeansWithInertia(points [][]float64, k int, seed int64) ([]int, [][]float64, float64) {
	n := len(points)
	if k > n {
		k = n
	}
	if k < 1 {
		k = 1
	}
	dim := len(points[0])

	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(n)
	centroids := make([][]float64, k)
	for i := 0; i < k; i++ {
		centroids[i] = append([]float64(nil), points[perm[i]]...)
	}

	labels := make([]int, n)
	const maxIterations = 100
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, p := range points {
			best, bestDist := 0, math.Inf(1)
			for c, centroid := range centroids {
				d := squaredDistance(p, centroid)
				if d < bestDist {
					bestDist, best = d, c
				}
			}
			if labels[i] != best {
				changed = true
			}
			labels[i] = best
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, p := range points {
			c := labels[i]
			counts[c]++
			for d := 0; d < dim; d++ {
				sums[c][d] += p[d]
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			for d := 0; d < dim; d++ {
				centroids[c][d] = sums[c][d] / float64(counts[c])
			}
		}

		if !changed && iter > 0 {
			break
		}
	}

	var inertia float64
	for i, p := range points {
		inertia += squaredDistance(p, centroids[labels[i]])
	}
	return labels, centroids, inertia
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

func cosineSimilarity(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
