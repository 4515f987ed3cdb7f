package domain

// NumClasses is the width of the classifier's output layer.
const NumClasses = 4

// ClassNames maps model output indexes to tumor class labels. The order is a
// training-time constant: predictions always index through this table, never
// through labels read back from a model artifact.
var ClassNames = [NumClasses]string{"Glioma", "Meningioma", "No Tumor", "Pituitary"}

// ClassIndex returns the output index for a label, or -1 if the label is not
// one of the four known classes.
func ClassIndex(name string) int {
	for i, n := range ClassNames {
		if n == name {
			return i
		}
	}
	return -1
}

type ConfidenceLevel string

const (
	ConfidenceHigh     ConfidenceLevel = "HIGH"
	ConfidenceGood     ConfidenceLevel = "GOOD"
	ConfidenceModerate ConfidenceLevel = "MODERATE"
	ConfidenceLow      ConfidenceLevel = "LOW"
)

// ConfidenceLevelFor buckets a confidence score: >= 0.9 high, >= 0.75 good,
// >= 0.6 moderate, anything below is low.
func ConfidenceLevelFor(score float64) ConfidenceLevel {
	switch {
	case score >= 0.9:
		return ConfidenceHigh
	case score >= 0.75:
		return ConfidenceGood
	case score >= 0.6:
		return ConfidenceModerate
	default:
		return ConfidenceLow
	}
}

type ClassInfo struct {
	Index       int      `json:"index"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Symptoms    []string `json:"symptoms,omitempty"`
}

var classCatalog = [NumClasses]ClassInfo{
	{
		Index: 0,
		Name:  "Glioma",
		Description: "Glioma is a tumor that occurs in the brain and spinal cord, " +
			"beginning in the gluey supportive cells (glial cells) that surround " +
			"nerve cells. Gliomas are the most common type of malignant brain tumor.",
		Symptoms: []string{
			"Headaches",
			"Seizures",
			"Memory problems",
			"Changes in personality or behavior",
		},
	},
	{
		Index: 1,
		Name:  "Meningioma",
		Description: "Meningioma is a tumor arising from the meninges, the membranes " +
			"that surround the brain and spinal cord. Most meningiomas are " +
			"noncancerous (benign), though rarely they can be malignant.",
		Symptoms: []string{
			"Vision changes",
			"Headaches that worsen over time",
			"Hearing loss or ringing in ears",
			"Memory loss",
		},
	},
	{
		Index: 2,
		Name:  "No Tumor",
		Description: "No Tumor indicates that the MRI scan shows normal brain tissue " +
			"without any detectable tumors. A normal scan does not rule out all " +
			"neurological conditions; a healthcare professional should perform a " +
			"complete evaluation.",
	},
	{
		Index: 3,
		Name:  "Pituitary",
		Description: "Pituitary tumor is an abnormal growth in the pituitary gland at " +
			"the base of the brain. Most pituitary tumors are noncancerous adenomas " +
			"and remain confined to the gland.",
		Symptoms: []string{
			"Vision problems",
			"Headaches",
			"Hormonal imbalances",
			"Unexplained weight changes",
		},
	},
}

// ClassCatalog returns the class table with medical descriptions, in output
// index order.
func ClassCatalog() []ClassInfo {
	out := make([]ClassInfo, NumClasses)
	copy(out, classCatalog[:])
	return out
}

// DescribeClass returns the catalog entry for a label.
func DescribeClass(name string) (ClassInfo, error) {
	idx := ClassIndex(name)
	if idx < 0 {
		return ClassInfo{}, ErrInvalidClass
	}
	return classCatalog[idx], nil
}
