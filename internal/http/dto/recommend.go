package dto

import "vrlearn.app/beacon/internal/model"

type RecommendRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"top_k,omitempty"`
}

type AppMatchResponse struct {
	AppID             string   `json:"app_id"`
	Name              string   `json:"name"`
	Category          string   `json:"category,omitempty"`
	Description       string   `json:"description,omitempty"`
	MatchedSkills     []string `json:"matched_skills"`
	Score             float64  `json:"score"`
	RetrievalSource   string   `json:"retrieval_source"`
	BridgeExplanation string   `json:"bridge_explanation,omitempty"`
	Reasoning         string   `json:"reasoning"`
}

type RecommendResponse struct {
	Apps               []AppMatchResponse `json:"apps"`
	QueryUnderstanding string             `json:"query_understanding"`
	MatchedSkills      []string           `json:"matched_skills"`
	TotalMatches       int                `json:"total_matches"`
}

func FromResult(result *model.RecommendationResult) RecommendResponse {
	apps := make([]AppMatchResponse, 0, len(result.Apps))
	for _, app := range result.Apps {
		apps = append(apps, AppMatchResponse{
			AppID:             app.AppID,
			Name:              app.Name,
			Category:          app.Category,
			Description:       app.Description,
			MatchedSkills:     app.MatchedSkills,
			Score:             app.Score,
			RetrievalSource:   string(app.RetrievalSource),
			BridgeExplanation: app.BridgeExplanation,
			Reasoning:         app.Reasoning,
		})
	}
	return RecommendResponse{
		Apps:               apps,
		QueryUnderstanding: result.QueryUnderstanding,
		MatchedSkills:      result.MatchedSkills,
		TotalMatches:       result.TotalMatches,
	}
}
