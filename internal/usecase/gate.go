package usecase

import (
	"WeatherAlertWatch/internal/domain"
)

// ClassifyFunc turns a parsed document into a record.
type ClassifyFunc func(doc *domain.Document, path string) (domain.CapRecord, error)

// GateResult is the partitioned batch. Failure is set when evaluation stopped early.
type GateResult struct {
	Formal  domain.Partition
	Test    domain.Partition
	Failure error
}

// Complete reports whether every batch item landed in a partition.
func (r GateResult) Complete(total int) bool {
	return r.Failure == nil && len(r.Formal.Records)+len(r.Test.Records) == total
}

// RunGate classifies the batch in arrival order against one ledger snapshot. The first
// unparseable, unclassifiable or duplicate item stops evaluation of the rest of the batch.
func RunGate(batch domain.Batch, classify ClassifyFunc, ledger domain.Ledger) GateResult {
	res := GateResult{Test: domain.Partition{Test: true}}

	for _, obs := range batch {
		if obs.Document == nil {
			res.Failure = &domain.Error{Kind: domain.KindMalformedContent, Field: "document", Path: obs.Path}
			return res
		}

		rec, err := classify(obs.Document, obs.Path)
		if err != nil {
			res.Failure = err
			return res
		}
		if rec.Identifier == "" {
			res.Failure = &domain.Error{Kind: domain.KindMissingIdentifier, Path: obs.Path}
			return res
		}

		if rec.TestMode {
			res.Test.Records = append(res.Test.Records, rec)
			continue
		}

		if ledger.Contains(rec.Identifier) {
			res.Failure = &domain.Error{Kind: domain.KindDuplicateIdentifier, Detail: rec.Identifier, Path: obs.Path}
			return res
		}
		res.Formal.Records = append(res.Formal.Records, rec)
	}

	return res
}
