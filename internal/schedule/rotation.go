package schedule

import (
	"fmt"

	"github.com/dukerupert/flatrota/internal/model"
)

// MemberForIndex returns the member responsible for the period at index.
// The result depends only on the member order and the index.
func MemberForIndex(members []model.Member, index int) (model.Member, error) {
	if len(members) == 0 {
		return model.Member{}, fmt.Errorf("%w: empty member list", ErrInvalidConfiguration)
	}
	if index < 0 {
		return model.Member{}, fmt.Errorf("%w: negative period index %d", ErrInvalidConfiguration, index)
	}
	return members[index%len(members)], nil
}
