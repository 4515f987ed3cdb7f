package classifier

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"gorgonia.org/tensor"

	"github.com/kush-rc/brain-tumor-detection/internal/domain"
	"github.com/kush-rc/brain-tumor-detection/internal/neural"
)

// Holder owns the process-wide model instance. The artifact is deserialized
// at most once: the first Get decides the outcome and every caller after
// that, concurrent first callers included, shares it, errors too. A failed
// load stays failed until the process restarts.
type Holder struct {
	primary  string
	fallback string

	once   sync.Once
	loaded atomic.Bool
	net    *neural.Network
	path   string
	err    error
}

func NewHolder(primary, fallback string) *Holder {
	return &Holder{primary: primary, fallback: fallback}
}

// Get returns the loaded network, loading it on first use.
func (h *Holder) Get() (*neural.Network, error) {
	h.once.Do(h.load)
	return h.net, h.err
}

// Loaded reports whether the model is resident without triggering a load.
func (h *Holder) Loaded() bool {
	return h.loaded.Load()
}

// Path returns the artifact path the model was loaded from. It is empty
// until a Get has succeeded.
func (h *Holder) Path() string {
	if !h.loaded.Load() {
		return ""
	}
	return h.path
}

func (h *Holder) load() {
	paths := []string{h.primary}
	if h.fallback != "" && h.fallback != h.primary {
		paths = append(paths, h.fallback)
	}
	for _, path := range paths {
		net, err := neural.Load(path)
		switch {
		case err == nil:
			if verr := validate(net); verr != nil {
				h.err = verr
				log.WithError(verr).WithField("path", path).Error("model artifact rejected")
				return
			}
			h.net = net
			h.path = path
			h.loaded.Store(true)
			log.WithFields(log.Fields{
				"path":   path,
				"name":   net.Name,
				"layers": len(net.Layers),
				"params": net.ParamCount(),
			}).Info("model loaded")
			return
		case os.IsNotExist(err):
			continue
		default:
			// The artifact exists but cannot be read; the fallback path is
			// only for relocated deployments, not for corrupt files.
			h.err = fmt.Errorf("%w: %v", domain.ErrModelInvalid, err)
			log.WithError(err).WithField("path", path).Error("model load failed")
			return
		}
	}
	h.err = domain.ErrModelNotFound
	log.WithFields(log.Fields{
		"primary":  h.primary,
		"fallback": h.fallback,
	}).Error("model artifact not found")
}

func validate(net *neural.Network) error {
	if w := net.OutputWidth(); w != domain.NumClasses {
		return fmt.Errorf("%w: output layer has %d units, want %d", domain.ErrModelInvalid, w, domain.NumClasses)
	}
	if net.InputShape[2] != 3 {
		return fmt.Errorf("%w: input wants %d channels, only RGB is supported", domain.ErrModelInvalid, net.InputShape[2])
	}
	if len(net.Labels) > 0 {
		for i, label := range net.Labels {
			if label != domain.ClassNames[i] {
				return fmt.Errorf("%w: artifact class %d is %q, system table has %q",
					domain.ErrModelInvalid, i, label, domain.ClassNames[i])
			}
		}
	}
	return nil
}

// Classifier turns preprocessed input tensors into class decisions.
type Classifier struct {
	holder *Holder
}

func New(holder *Holder) *Classifier {
	return &Classifier{holder: holder}
}

// InputSize returns the spatial input dimensions (width, height) the loaded
// model expects.
func (c *Classifier) InputSize() (w, h int, err error) {
	net, err := c.holder.Get()
	if err != nil {
		return 0, 0, err
	}
	return net.InputShape[1], net.InputShape[0], nil
}

// Network exposes the loaded model for introspection and explanation.
func (c *Classifier) Network() (*neural.Network, error) {
	return c.holder.Get()
}

// Predict runs one forward pass. The first maximum wins on ties, confidence
// is the score at the winning index, and the elapsed time covers the whole
// pass. Repeated calls with the same tensor produce identical results.
func (c *Classifier) Predict(x *tensor.Dense) (*domain.Prediction, error) {
	net, err := c.holder.Get()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := net.Forward(x)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInferenceFailed, err)
	}
	elapsed := time.Since(start)

	scores := out.Data().([]float32)
	if len(scores) != domain.NumClasses {
		return nil, fmt.Errorf("%w: got %d scores for %d classes", domain.ErrInferenceFailed, len(scores), domain.NumClasses)
	}

	pred := &domain.Prediction{Elapsed: elapsed}
	best := 0
	for i, s := range scores {
		pred.Scores[i] = float64(s)
		if s > scores[best] {
			best = i
		}
	}
	pred.ClassIndex = best
	pred.Class = domain.ClassNames[best]
	pred.Confidence = pred.Scores[best]
	return pred, nil
}
