package retriever

import "math"

// applyMMR greedily selects limit candidates from the pool by Maximal
// Marginal Relevance. Relevance is the cosine similarity between the query
// vector and the candidate's stored vector; fused rank scores are on a
// different scale and play no part here. The first pick is the most relevant
// candidate; each subsequent pick maximizes
//
//	lambda*relevance - (1-lambda)*maxSimilarityToSelected
//
// Candidates without stored vectors score zero relevance and are never
// penalized for redundancy.
func applyMMR(pool []Candidate, queryVec []float32, limit int, lambda float32) []Candidate {
	if len(pool) == 0 || limit <= 0 {
		return nil
	}
	if limit > len(pool) {
		limit = len(pool)
	}

	relevance := make([]float32, len(pool))
	for i, c := range pool {
		relevance[i] = cosineSimilarity(queryVec, c.Vector)
	}

	selected := make([]Candidate, 0, limit)
	used := make([]bool, len(pool))

	// Ties keep pool order, which is the fused ranking.
	first := 0
	for i := range pool {
		if relevance[i] > relevance[first] {
			first = i
		}
	}
	selected = append(selected, pool[first])
	used[first] = true

	for len(selected) < limit {
		bestIdx := -1
		bestScore := float32(math.Inf(-1))
		for i, cand := range pool {
			if used[i] {
				continue
			}
			var maxSim float32
			if cand.Vector != nil {
				for _, sel := range selected {
					if sel.Vector == nil {
						continue
					}
					if sim := cosineSimilarity(cand.Vector, sel.Vector); sim > maxSim {
						maxSim = sim
					}
				}
			}
			score := lambda*relevance[i] - (1-lambda)*maxSim
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			break
		}
		selected = append(selected, pool[bestIdx])
		used[bestIdx] = true
	}

	return selected
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths or zero vectors yield 0.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
