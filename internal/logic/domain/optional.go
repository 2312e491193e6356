package domain

// Optional 显式的 present/absent 变体。链上指令布局是定长形状，
// 缺省字段必须编码为 None 而不是省略。
type Optional[T any] struct {
	value   T
	present bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, present: true}
}

func None[T any]() Optional[T] {
	return Optional[T]{}
}

// OptionalString 空串视为 None，便于从 CLI/表单输入构造
func OptionalString(s string) Optional[string] {
	if s == "" {
		return None[string]()
	}
	return Some(s)
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.present
}

func (o Optional[T]) IsSome() bool {
	return o.present
}

// Ptr 降级为指针形式（borsh Option 编码约定：nil = None）
func (o Optional[T]) Ptr() *T {
	if !o.present {
		return nil
	}
	v := o.value
	return &v
}

func OptionalFromPtr[T any](p *T) Optional[T] {
	if p == nil {
		return None[T]()
	}
	return Some(*p)
}
