package browser

import (
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Типы ресурсов, не нужные для разбора выдачи.
var blockedTypes = map[proto.NetworkResourceType]bool{
	proto.NetworkResourceTypeImage: true,
	proto.NetworkResourceTypeFont:  true,
	proto.NetworkResourceTypeMedia: true,
}

func shouldBlock(t proto.NetworkResourceType) bool {
	return blockedTypes[t]
}

// applyResourceBlocking перехватывает запросы вкладки и отбрасывает тяжёлые ресурсы.
func applyResourceBlocking(page *rod.Page) (*rod.HijackRouter, error) {
	router := page.HijackRequests()
	err := router.Add("*", "", func(h *rod.Hijack) {
		if shouldBlock(h.Request.Type()) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	if err != nil {
		return nil, err
	}
	go router.Run()
	return router, nil
}
