package model

// Difficulty 挑战难度枚举
type Difficulty string

const (
	DifficultyEasy    Difficulty = "easy"
	DifficultyMedium  Difficulty = "medium"
	DifficultyHard    Difficulty = "hard"
	DifficultyExtreme Difficulty = "extreme"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyExtreme:
		return true
	}
	return false
}

// Challenge 挑战模型，被参与记录引用后只允许创建者修改
type Challenge struct {
	BaseModel
	Title            string     `gorm:"type:varchar(120);not null" json:"title"`
	Description      string     `gorm:"type:text;not null;default:''" json:"description"`
	Category         string     `gorm:"type:varchar(32);not null;default:'';index:idx_challenges_public_category" json:"category"`
	Difficulty       Difficulty `gorm:"type:varchar(16);not null" json:"difficulty"`
	Tags             []string   `gorm:"type:jsonb;serializer:json" json:"tags"`
	DurationDays     int        `gorm:"not null;check:duration_days > 0" json:"duration_days"`
	PointsReward     int        `gorm:"not null;check:points_reward >= 0" json:"points_reward"`
	IsPublic         bool       `gorm:"not null;index:idx_challenges_public_category" json:"is_public"`
	CreatedBy        int64      `gorm:"not null;index" json:"created_by"`
	ParticipantCount int64      `gorm:"not null;default:0" json:"participant_count"`
}

// TableName 指定表名
func (Challenge) TableName() string {
	return "challenges"
}

// JoinableBy 私有挑战只有创建者可以加入
func (c *Challenge) JoinableBy(userID int64) bool {
	return c.IsPublic || c.CreatedBy == userID
}
