// Package defaults holds the fixed reference data: what system setup seeds
// and what the services fall back to when the store has nothing configured.
package defaults

import (
	"time"

	"nongxian/models"
)

// Category ids
const (
	CategoryVegetable = "vegetable"
	CategoryFruit     = "fruit"
	CategoryGrain     = "grain"
	CategoryMushroom  = "mushroom"
	CategoryProcessed = "processed"
)

// Payment method ids
const (
	PaymentCreditCard = "credit_card"
	PaymentATM        = "atm"
	PaymentCOD        = "cod"
	PaymentLinePay    = "line_pay"
	PaymentCVSCode    = "cvs_code"
)

func Categories(now time.Time) []models.Category {
	return []models.Category{
		{ID: CategoryVegetable, Name: "新鮮蔬菜", Description: "產地直送的當季蔬菜", Icon: "🥬", SortOrder: 1, IsActive: true, CreatedAt: now},
		{ID: CategoryFruit, Name: "當季水果", Description: "果園現採的在地水果", Icon: "🍎", SortOrder: 2, IsActive: true, CreatedAt: now},
		{ID: CategoryGrain, Name: "米糧雜糧", Description: "小農契作的米與雜糧", Icon: "🌾", SortOrder: 3, IsActive: true, CreatedAt: now},
		{ID: CategoryMushroom, Name: "菇蕈類", Description: "溫室栽培的新鮮菇類", Icon: "🍄", SortOrder: 4, IsActive: true, CreatedAt: now},
		{ID: CategoryProcessed, Name: "農產加工品", Description: "果醬、果乾與手作醬料", Icon: "🫙", SortOrder: 5, IsActive: true, CreatedAt: now},
	}
}

func Products(now time.Time) []models.Product {
	return []models.Product{
		{ID: "p-cabbage", Name: "梨山高麗菜", Category: CategoryVegetable, Price: 120, OriginalPrice: 150, Unit: "顆", Stock: 80,
			Image: "/images/products/cabbage.jpg", Farm: "福壽山農場", Location: "台中梨山", Tags: []string{"高山", "當季"}, IsActive: true, CreatedAt: now},
		{ID: "p-spinach", Name: "有機菠菜", Category: CategoryVegetable, Price: 85, Unit: "包", Stock: 120,
			Image: "/images/products/spinach.jpg", Farm: "青田有機農場", Location: "宜蘭三星", Tags: []string{"有機"}, IsOrganic: true, IsActive: true, CreatedAt: now},
		{ID: "p-mango", Name: "玉井愛文芒果", Category: CategoryFruit, Price: 680, OriginalPrice: 780, Unit: "箱", Stock: 40,
			Image: "/images/products/mango.jpg", Farm: "玉井果園", Location: "台南玉井", Tags: []string{"當季", "禮盒"}, IsActive: true, CreatedAt: now},
		{ID: "p-guava", Name: "燕巢珍珠芭樂", Category: CategoryFruit, Price: 250, Unit: "盒", Stock: 60,
			Image: "/images/products/guava.jpg", Farm: "燕巢果農合作社", Location: "高雄燕巢", IsActive: true, CreatedAt: now},
		{ID: "p-rice", Name: "池上契作米", Category: CategoryGrain, Price: 360, Unit: "3公斤", Stock: 100,
			Image: "/images/products/rice.jpg", Farm: "池上米鄉", Location: "台東池上", Tags: []string{"契作"}, IsActive: true, CreatedAt: now},
		{ID: "p-shiitake", Name: "段木香菇", Category: CategoryMushroom, Price: 420, Unit: "300克", Stock: 30,
			Image: "/images/products/shiitake.jpg", Farm: "新社菇農", Location: "台中新社", IsActive: true, CreatedAt: now},
		{ID: "p-jam", Name: "手作草莓果醬", Category: CategoryProcessed, Price: 220, Unit: "罐", Stock: 50,
			Image: "/images/products/jam.jpg", Farm: "大湖莓園", Location: "苗栗大湖", IsActive: true, CreatedAt: now},
		{ID: "p-dried-longan", Name: "古法煙燻龍眼乾", Category: CategoryProcessed, Price: 380, Unit: "包", Stock: 25,
			Image: "/images/products/longan.jpg", Farm: "東山焙灶寮", Location: "台南東山", Tags: []string{"古法"}, IsActive: true, CreatedAt: now},
	}
}

func PaymentMethods(now time.Time) []models.PaymentMethod {
	return []models.PaymentMethod{
		{ID: PaymentCreditCard, Name: "信用卡", Description: "支援 VISA、MasterCard、JCB", Icon: "💳", SortOrder: 1, Enabled: true, CreatedAt: now},
		{ID: PaymentATM, Name: "ATM 轉帳", Description: "下單後三日內完成轉帳", Icon: "🏧", SortOrder: 2, Enabled: true, CreatedAt: now},
		{ID: PaymentCOD, Name: "貨到付款", Description: "商品送達時付款", Icon: "📦", Fee: 30, SortOrder: 3, Enabled: true, CreatedAt: now},
		{ID: PaymentLinePay, Name: "LINE Pay", Description: "使用 LINE Pay 付款", Icon: "💚", SortOrder: 4, Enabled: true, CreatedAt: now},
		{ID: PaymentCVSCode, Name: "超商代碼繳費", Description: "至四大超商繳費", Icon: "🏪", SortOrder: 5, Enabled: true, CreatedAt: now},
	}
}

// PaymentMethodName resolves a payment id to its display name from the
// fallback table, returning the id itself when unknown.
func PaymentMethodName(id string) string {
	for _, m := range PaymentMethods(time.Time{}) {
		if m.ID == id {
			return m.Name
		}
	}
	return id
}
