package service

// CanAccess 判斷呼叫者是否可操作指定擁有者的資源。
// 規則只有一條：管理員放行，否則必須是資源擁有者本人。
// 讀取、更新、刪除一律套用同一規則。
func CanAccess(ident Identity, ownerID int) bool {
	return ident.IsAdmin || ident.UserID == ownerID
}
