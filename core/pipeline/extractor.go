package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/mineral-labs/lodegraph/helper"
	"github.com/mineral-labs/lodegraph/model"
)

// DefaultExtractor creates a node-record extractor using a NER model
// (distilbert-NER). Each recognized entity becomes a raw node record with
// its surface form and extractor confidence; edge records require a
// relation-capable extractor and stay empty here.
func DefaultExtractor() (ExtractFunc, error) {
	// Prepare model (download if needed)
	modelName := "KnightsAnalytics/distilbert-NER"
	modelPath, err := helper.PrepareModel(modelName, "model.onnx")
	if err != nil {
		return nil, err
	}

	// Initialize hugot session with Go backend
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	// Create token classification pipeline for NER
	config := hugot.TokenClassificationConfig{
		ModelPath: modelPath,
		Name:      "ner-pipeline",
		Options: []hugot.TokenClassificationOption{
			pipelines.WithSimpleAggregation(),
			pipelines.WithIgnoreLabels([]string{"O"}), // Ignore non-entity tokens
		},
	}
	nerPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create NER pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create NER pipeline: %w", err)
	}

	return func(ctx context.Context, text string) (*model.Extraction, error) {
		result, err := nerPipeline.RunPipeline([]string{text})
		if err != nil {
			return nil, fmt.Errorf("failed to run NER: %w", err)
		}

		extraction := &model.Extraction{}
		if len(result.Entities) == 0 {
			return extraction, nil
		}

		for _, entity := range result.Entities[0] {
			name := strings.TrimSpace(entity.Word)
			if name == "" {
				continue
			}

			extraction.Nodes = append(extraction.Nodes, model.RawRecord{
				Kind: model.RecordKindNode,
				Type: normalizeEntityType(entity.Entity),
				Properties: model.Metadata{
					"name":       name,
					"surface":    name,
					"confidence": float64(entity.Score),
				},
			})
		}

		return extraction, nil
	}, nil
}

// normalizeEntityType removes B- and I- prefixes from NER labels
func normalizeEntityType(label string) string {
	// Remove BIO tagging prefixes (B- for beginning, I- for inside)
	if strings.HasPrefix(label, "B-") {
		return label[2:]
	}
	if strings.HasPrefix(label, "I-") {
		return label[2:]
	}
	return label
}
