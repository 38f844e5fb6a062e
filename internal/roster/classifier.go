package roster

// Classifier 判断哪些变更需要通知
//
// 新值为占位状态（未排班 / 无班 / 未知）时不通知，这同时覆盖了新旧值都是占位状态的情况；
// 其余变更一律通知，与旧值无关。
type Classifier struct {
	vocab *Vocabulary
}

// NewClassifier 创建分类器
func NewClassifier(vocab *Vocabulary) *Classifier {
	return &Classifier{vocab: vocab}
}

// IsNotifiable 单条变更是否需要通知
func (c *Classifier) IsNotifiable(ch PendingChange) bool {
	return c.vocab.Notifiable(ch.NewValue)
}

// FilterNotifiable 过滤出需要通知的变更，保持原顺序
func (c *Classifier) FilterNotifiable(changes []PendingChange) []PendingChange {
	out := make([]PendingChange, 0, len(changes))
	for _, ch := range changes {
		if c.IsNotifiable(ch) {
			out = append(out, ch)
		}
	}
	return out
}
