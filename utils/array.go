package utils

// DifferenceBy 按 key 比较两个数组.
// added 是 after 里有而 before 里没有的元素, removed 是 before 里有而 after 里没有的元素.
func DifferenceBy[T any, K comparable](before []T, after []T, keyFn func(item T) K) (added []T, removed []T) {
	seenBefore := make(map[K]struct{}, len(before))
	seenAfter := make(map[K]struct{}, len(after))

	for _, elem := range before {
		seenBefore[keyFn(elem)] = struct{}{}
	}
	for _, elem := range after {
		seenAfter[keyFn(elem)] = struct{}{}
	}

	for _, elem := range after {
		if _, ok := seenBefore[keyFn(elem)]; !ok {
			added = append(added, elem)
		}
	}
	for _, elem := range before {
		if _, ok := seenAfter[keyFn(elem)]; !ok {
			removed = append(removed, elem)
		}
	}
	return added, removed
}

// EqualBy 两个数组长度相同且每个位置的 key 相同
func EqualBy[T any, K comparable](a []T, b []T, keyFn func(item T) K) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if keyFn(a[i]) != keyFn(b[i]) {
			return false
		}
	}
	return true
}
