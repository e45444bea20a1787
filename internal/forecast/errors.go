package forecast

import "errors"

// Kind identifies the pipeline stage an Error came from.
type Kind string

const (
	KindTraining   Kind = "training"
	KindPrediction Kind = "prediction"
)

// ErrNotTrained is returned by Predict before any model has been saved.
var ErrNotTrained = errors.New("default model or scaler not found, please train the model first")

// Error wraps any failure of a train or predict call. The message is the same
// for every cause; callers that need the cause use errors.Is / errors.As.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return "could not fetch or process stock data: " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == k
}
