package linkdb

import (
	"time"

	"github.com/uptrace/bun"
)

// LinkedAccount ties a chat identity to one game account. A game account has
// at most one owner.
type LinkedAccount struct {
	bun.BaseModel `bun:"table:linked_accounts,alias:la"`
	Tag           string    `bun:"tag,pk,notnull,type:varchar(16)"`
	UserID        string    `bun:"user_id,notnull,type:varchar(20)"`
	Name          string    `bun:"name,notnull,default:''"`
	Verified      bool      `bun:"verified,notnull,default:false"`
	Order         int       `bun:"link_order,notnull,default:0"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
