package assets

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewKey builds a blob key of the form img_<unixmillis>_<index>_<random>.
// The index keeps keys from one batch apart even within the same millisecond.
func NewKey(index int) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("img_%d_%d_%s", time.Now().UnixMilli(), index, random)
}
