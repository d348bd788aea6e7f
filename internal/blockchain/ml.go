package blockchain

import "errors"

// ErrNoModelSubmitted / ErrMultipleModelsSubmitted guard construct_block's
// "extract the (unique) ModelData from the block set" step, spec.md §4.4.6.
var (
	ErrNoModelSubmitted        = errors.New("blockchain: no ModelData submitted in block set")
	ErrMultipleModelsSubmitted = errors.New("blockchain: more than one ModelData submitted in block set")
)

// ValidateMLTx performs the ML flavor's structural checks: a submitted
// model must carry at least one interval to validate. Grounded on the
// original's MLTransactionValidator, which spec.md §4.4.5 describes only as
// "structural checks."
func ValidateMLTx(tx *MLTx) bool {
	return len(tx.Model.IntervalsValidity) > 0
}

// ExtractModel finds the single MLTx in txMap, per spec.md §4.4.6 step 2
// ("extract the (unique) ModelData from the block set").
func ExtractModel(txMap map[string]Transaction) (*MLTx, error) {
	var found *MLTx
	for _, t := range txMap {
		mtx, ok := t.(*MLTx)
		if !ok {
			continue
		}
		if found != nil {
			return nil, ErrMultipleModelsSubmitted
		}
		found = mtx
	}
	if found == nil {
		return nil, ErrNoModelSubmitted
	}
	return found, nil
}

// AllIntervalsValid reports whether every interval in validations is true,
// the all_valid flag spec.md §3/§4.4.6 set on ML blocks and skeletons.
func AllIntervalsValid(validations map[int]bool) bool {
	for _, v := range validations {
		if !v {
			return false
		}
	}
	return true
}
