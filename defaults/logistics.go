package defaults

import (
	"time"

	"nongxian/models"
)

// Delivery method ids
const (
	DeliveryHome      = "home_delivery"
	DeliveryColdChain = "cold_chain"
	DeliveryCVS       = "cvs_pickup"
	DeliveryStore     = "store_pickup"
)

// LogisticsSettingsID is the id of the singleton logistics document.
const LogisticsSettingsID = "default"

func Carriers() []models.Carrier {
	return []models.Carrier{
		{Code: "tcat", Name: "黑貓宅急便", TrackingURL: "https://www.t-cat.com.tw/Inquire/Trace.aspx?no={trackingNumber}", Phone: "412-8888", Enabled: true},
		{Code: "hct", Name: "新竹物流", TrackingURL: "https://www.hct.com.tw/Search/SearchGoods_n.aspx?no={}", Phone: "0800-052-052", Enabled: true},
		{Code: "post", Name: "中華郵政", TrackingURL: "https://postserv.post.gov.tw/pstmail/main_mail.html?MAILNO={trackingNumber}", Phone: "0800-700-365", Enabled: true},
		{Code: "kerry", Name: "嘉里大榮", TrackingURL: "https://www.kerrytj.com/ZH/search/search_track.aspx?track_no={}", Enabled: true},
		{Code: "seven", Name: "7-ELEVEN 交貨便", TrackingURL: "https://eservice.7-11.com.tw/e-tracking/search.aspx?shipment={trackingNumber}", Enabled: true},
	}
}

// Carrier looks up a fallback carrier by code.
func Carrier(code string) (models.Carrier, bool) {
	for _, c := range Carriers() {
		if c.Code == code {
			return c, true
		}
	}
	return models.Carrier{}, false
}

func DeliveryMethods() []models.DeliveryMethod {
	return []models.DeliveryMethod{
		{ID: DeliveryHome, Name: "常溫宅配", Description: "適合米糧與加工品", Fee: 150, FreeShippingThreshold: 1500, EstimatedDays: "2-3", Carrier: "tcat", Enabled: true},
		{ID: DeliveryColdChain, Name: "低溫冷藏宅配", Description: "蔬果全程冷鏈配送", Fee: 200, FreeShippingThreshold: 2000, EstimatedDays: "1-2", Carrier: "tcat", Enabled: true},
		{ID: DeliveryCVS, Name: "超商取貨", Description: "7-ELEVEN 門市取貨", Fee: 60, FreeShippingThreshold: 800, EstimatedDays: "3-5", Carrier: "seven", Enabled: true},
		{ID: DeliveryStore, Name: "門市自取", Description: "至農鮮市集門市取貨", Fee: 0, EstimatedDays: "1", Enabled: true},
	}
}

// DeliveryMethod looks up a fallback delivery method by id.
func DeliveryMethod(id string) (models.DeliveryMethod, bool) {
	for _, m := range DeliveryMethods() {
		if m.ID == id {
			return m, true
		}
	}
	return models.DeliveryMethod{}, false
}

func Logistics(now time.Time) models.LogisticsSettings {
	return models.LogisticsSettings{
		ID:              LogisticsSettingsID,
		Carriers:        Carriers(),
		DeliveryMethods: DeliveryMethods(),
		PickupLocations: []models.PickupLocation{
			{ID: "taipei", Name: "台北旗艦門市", Address: "台北市大安區復興南路一段 100 號", Hours: "10:00-20:00", Phone: "02-2700-1234", Enabled: true},
			{ID: "taichung", Name: "台中門市", Address: "台中市西區公益路 200 號", Hours: "10:00-19:00", Phone: "04-2300-5678", Enabled: true},
		},
		DeliveryAreas: []models.DeliveryArea{
			{ID: "main", Name: "台灣本島", Cities: []string{"台北市", "新北市", "基隆市", "桃園市", "新竹市", "新竹縣", "苗栗縣", "台中市", "彰化縣", "南投縣", "雲林縣", "嘉義市", "嘉義縣", "台南市", "高雄市", "屏東縣", "宜蘭縣", "花蓮縣", "台東縣"}, Available: true},
			{ID: "islands", Name: "離島地區", Cities: []string{"澎湖縣", "金門縣", "連江縣"}, ExtraFee: 150, Available: true},
		},
		UpdatedAt: now,
	}
}
