package resolver

import "context"

// exactStrategy accepts descriptors that already are CSS selectors
// matching something on the page.
type exactStrategy struct{}

func (exactStrategy) Name() string { return "exact" }

func (exactStrategy) Resolve(_ context.Context, page Page, descriptor string) (*Resolution, error) {
	if err := ValidateSelector(descriptor); err != nil {
		return nil, nil
	}
	if !page.Exists(descriptor) {
		return nil, nil
	}

	return &Resolution{
		Selector:   descriptor,
		Confidence: 1.0,
		Strategy:   "exact",
	}, nil
}
