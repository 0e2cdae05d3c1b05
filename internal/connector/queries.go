package connector

import (
	"fmt"
	"strconv"
	"sync"

	"gorm.io/gorm"

	"magewoo/internal/services/magento"
)

// queries flattens the Magento EAV schema into the raw record shapes the
// migration side consumes. Attribute IDs are looked up once and cached.
type queries struct {
	db *gorm.DB

	mu      sync.Mutex
	attrIDs map[string]int64
}

func newQueries(db *gorm.DB) *queries {
	return &queries{
		db:      db,
		attrIDs: make(map[string]int64),
	}
}

func (q *queries) storeName() (string, error) {
	var name string
	err := q.db.Raw(
		`SELECT value FROM core_config_data WHERE path = 'general/store_information/name' AND scope = 'default' LIMIT 1`,
	).Scan(&name).Error
	if err != nil {
		return "", err
	}
	if name == "" {
		name = "Magento Store"
	}
	return name, nil
}

func (q *queries) entityCounts() (map[string]int64, error) {
	counts := make(map[string]int64, 4)
	queries := map[string]string{
		"products":   `SELECT COUNT(*) FROM catalog_product_entity`,
		"categories": `SELECT COUNT(*) FROM catalog_category_entity WHERE entity_id > 2`,
		"customers":  `SELECT COUNT(*) FROM customer_entity`,
		"orders":     `SELECT COUNT(*) FROM sales_flat_order`,
	}
	for kind, sql := range queries {
		var n int64
		if err := q.db.Raw(sql).Scan(&n).Error; err != nil {
			return nil, fmt.Errorf("count %s: %w", kind, err)
		}
		counts[kind] = n
	}
	return counts, nil
}

func (q *queries) attributeID(entityTypeCode, code string) (int64, error) {
	key := entityTypeCode + "/" + code
	q.mu.Lock()
	defer q.mu.Unlock()
	if id, ok := q.attrIDs[key]; ok {
		return id, nil
	}

	var id int64
	err := q.db.Raw(
		`SELECT a.attribute_id FROM eav_attribute a
		 JOIN eav_entity_type t ON t.entity_type_id = a.entity_type_id
		 WHERE t.entity_type_code = ? AND a.attribute_code = ?`,
		entityTypeCode, code,
	).Scan(&id).Error
	if err != nil {
		return 0, fmt.Errorf("attribute %s: %w", key, err)
	}
	if id == 0 {
		return 0, fmt.Errorf("attribute %s not found", key)
	}
	q.attrIDs[key] = id
	return id, nil
}

type attrRow struct {
	EntityID int64
	Value    *string
}

// attrValues reads one attribute for a set of entities from an EAV value
// table (default store scope).
func (q *queries) attrValues(table, entityTypeCode, code string, ids []int64) (map[int64]string, error) {
	if len(ids) == 0 {
		return map[int64]string{}, nil
	}
	attrID, err := q.attributeID(entityTypeCode, code)
	if err != nil {
		return nil, err
	}

	var rows []attrRow
	err = q.db.Raw(
		`SELECT entity_id, value FROM `+table+` WHERE attribute_id = ? AND store_id = 0 AND entity_id IN ?`,
		attrID, ids,
	).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("read %s.%s: %w", table, code, err)
	}

	values := make(map[int64]string, len(rows))
	for _, r := range rows {
		if r.Value != nil {
			values[r.EntityID] = *r.Value
		}
	}
	return values, nil
}

func (q *queries) products(page, limit int) ([]magento.RawProduct, int64, error) {
	var total int64
	if err := q.db.Raw(`SELECT COUNT(*) FROM catalog_product_entity`).Scan(&total).Error; err != nil {
		return nil, 0, err
	}

	type entityRow struct {
		EntityID int64
		SKU      string
	}
	var entities []entityRow
	err := q.db.Raw(
		`SELECT entity_id, sku FROM catalog_product_entity ORDER BY entity_id LIMIT ? OFFSET ?`,
		limit, (page-1)*limit,
	).Scan(&entities).Error
	if err != nil {
		return nil, 0, err
	}
	if len(entities) == 0 {
		return []magento.RawProduct{}, total, nil
	}

	ids := make([]int64, len(entities))
	for i, e := range entities {
		ids[i] = e.EntityID
	}

	varchars := map[string]map[int64]string{}
	for _, code := range []string{"name", "url_key", "image", "small_image", "thumbnail"} {
		values, err := q.attrValues("catalog_product_entity_varchar", "catalog_product", code, ids)
		if err != nil {
			return nil, 0, err
		}
		varchars[code] = values
	}
	texts := map[string]map[int64]string{}
	for _, code := range []string{"description", "short_description"} {
		values, err := q.attrValues("catalog_product_entity_text", "catalog_product", code, ids)
		if err != nil {
			return nil, 0, err
		}
		texts[code] = values
	}
	prices, err := q.attrValues("catalog_product_entity_decimal", "catalog_product", "price", ids)
	if err != nil {
		return nil, 0, err
	}
	statuses, err := q.attrValues("catalog_product_entity_int", "catalog_product", "status", ids)
	if err != nil {
		return nil, 0, err
	}
	visibilities, err := q.attrValues("catalog_product_entity_int", "catalog_product", "visibility", ids)
	if err != nil {
		return nil, 0, err
	}

	type stockRow struct {
		ProductID int64
		Qty       float64
		IsInStock bool
	}
	var stock []stockRow
	err = q.db.Raw(
		`SELECT product_id, qty, is_in_stock FROM cataloginventory_stock_item WHERE product_id IN ?`, ids,
	).Scan(&stock).Error
	if err != nil {
		return nil, 0, err
	}
	stockByID := make(map[int64]stockRow, len(stock))
	for _, s := range stock {
		stockByID[s.ProductID] = s
	}

	type catRow struct {
		ProductID  int64
		CategoryID int64
	}
	var cats []catRow
	err = q.db.Raw(
		`SELECT product_id, category_id FROM catalog_category_product WHERE product_id IN ?`, ids,
	).Scan(&cats).Error
	if err != nil {
		return nil, 0, err
	}
	catsByID := make(map[int64][]int64)
	for _, c := range cats {
		catsByID[c.ProductID] = append(catsByID[c.ProductID], c.CategoryID)
	}

	type galleryRow struct {
		EntityID int64
		File     string
		Label    *string
		Position *int
		Disabled *bool
	}
	var gallery []galleryRow
	err = q.db.Raw(
		`SELECT g.entity_id, g.value AS file, v.label, v.position, v.disabled
		 FROM catalog_product_entity_media_gallery g
		 LEFT JOIN catalog_product_entity_media_gallery_value v
		   ON v.value_id = g.value_id AND v.store_id = 0
		 WHERE g.entity_id IN ?
		 ORDER BY g.entity_id, v.position`, ids,
	).Scan(&gallery).Error
	if err != nil {
		return nil, 0, err
	}
	galleryByID := make(map[int64][]magento.RawMediaEntry)
	for _, g := range gallery {
		entry := magento.RawMediaEntry{File: g.File}
		if g.Label != nil {
			entry.Label = *g.Label
		}
		if g.Position != nil {
			entry.Position = *g.Position
		}
		if g.Disabled != nil {
			entry.Disabled = *g.Disabled
		}
		galleryByID[g.EntityID] = append(galleryByID[g.EntityID], entry)
	}

	records := make([]magento.RawProduct, 0, len(entities))
	for _, e := range entities {
		rec := magento.RawProduct{
			EntityID:     e.EntityID,
			SKU:          e.SKU,
			Name:         varchars["name"][e.EntityID],
			URLKey:       optString(varchars["url_key"], e.EntityID),
			Image:        optString(varchars["image"], e.EntityID),
			SmallImage:   optString(varchars["small_image"], e.EntityID),
			Thumbnail:    optString(varchars["thumbnail"], e.EntityID),
			Description:  optString(texts["description"], e.EntityID),
			CategoryIDs:  catsByID[e.EntityID],
			MediaGallery: galleryByID[e.EntityID],
		}
		rec.ShortDescription = optString(texts["short_description"], e.EntityID)
		if v, ok := prices[e.EntityID]; ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				rec.Price = &f
			}
		}
		if v, ok := statuses[e.EntityID]; ok {
			if n, err := strconv.Atoi(v); err == nil {
				rec.Status = n
			}
		}
		if v, ok := visibilities[e.EntityID]; ok {
			if n, err := strconv.Atoi(v); err == nil {
				rec.Visibility = n
			}
		}
		if s, ok := stockByID[e.EntityID]; ok {
			qty := s.Qty
			inStock := s.IsInStock
			rec.Qty = &qty
			rec.IsInStock = &inStock
		}
		records = append(records, rec)
	}
	return records, total, nil
}

func (q *queries) categories(page, limit int) ([]magento.RawCategory, int64, error) {
	var total int64
	if err := q.db.Raw(`SELECT COUNT(*) FROM catalog_category_entity WHERE entity_id > 2`).Scan(&total).Error; err != nil {
		return nil, 0, err
	}

	type entityRow struct {
		EntityID int64
		ParentID int64
		Position int
	}
	var entities []entityRow
	err := q.db.Raw(
		`SELECT entity_id, parent_id, position FROM catalog_category_entity
		 WHERE entity_id > 2 ORDER BY entity_id LIMIT ? OFFSET ?`,
		limit, (page-1)*limit,
	).Scan(&entities).Error
	if err != nil {
		return nil, 0, err
	}
	if len(entities) == 0 {
		return []magento.RawCategory{}, total, nil
	}

	ids := make([]int64, len(entities))
	for i, e := range entities {
		ids[i] = e.EntityID
	}

	names, err := q.attrValues("catalog_category_entity_varchar", "catalog_category", "name", ids)
	if err != nil {
		return nil, 0, err
	}
	urlKeys, err := q.attrValues("catalog_category_entity_varchar", "catalog_category", "url_key", ids)
	if err != nil {
		return nil, 0, err
	}
	descriptions, err := q.attrValues("catalog_category_entity_text", "catalog_category", "description", ids)
	if err != nil {
		return nil, 0, err
	}
	actives, err := q.attrValues("catalog_category_entity_int", "catalog_category", "is_active", ids)
	if err != nil {
		return nil, 0, err
	}
	inMenus, err := q.attrValues("catalog_category_entity_int", "catalog_category", "include_in_menu", ids)
	if err != nil {
		return nil, 0, err
	}

	records := make([]magento.RawCategory, 0, len(entities))
	for _, e := range entities {
		parent := e.ParentID
		rec := magento.RawCategory{
			EntityID:      e.EntityID,
			Name:          names[e.EntityID],
			URLKey:        optString(urlKeys, e.EntityID),
			Description:   optString(descriptions, e.EntityID),
			ParentID:      &parent,
			Position:      e.Position,
			IsActive:      optFlag(actives, e.EntityID),
			IncludeInMenu: optFlag(inMenus, e.EntityID),
		}
		records = append(records, rec)
	}
	return records, total, nil
}

func (q *queries) customers(page, limit int) ([]magento.RawCustomer, int64, error) {
	var total int64
	if err := q.db.Raw(`SELECT COUNT(*) FROM customer_entity`).Scan(&total).Error; err != nil {
		return nil, 0, err
	}

	type entityRow struct {
		EntityID int64
		Email    string
		GroupID  int64
	}
	var entities []entityRow
	err := q.db.Raw(
		`SELECT entity_id, email, group_id FROM customer_entity ORDER BY entity_id LIMIT ? OFFSET ?`,
		limit, (page-1)*limit,
	).Scan(&entities).Error
	if err != nil {
		return nil, 0, err
	}
	if len(entities) == 0 {
		return []magento.RawCustomer{}, total, nil
	}

	ids := make([]int64, len(entities))
	for i, e := range entities {
		ids[i] = e.EntityID
	}

	firstnames, err := q.attrValues("customer_entity_varchar", "customer", "firstname", ids)
	if err != nil {
		return nil, 0, err
	}
	lastnames, err := q.attrValues("customer_entity_varchar", "customer", "lastname", ids)
	if err != nil {
		return nil, 0, err
	}
	defaultBilling, err := q.attrValues("customer_entity_int", "customer", "default_billing", ids)
	if err != nil {
		return nil, 0, err
	}
	defaultShipping, err := q.attrValues("customer_entity_int", "customer", "default_shipping", ids)
	if err != nil {
		return nil, 0, err
	}

	type groupRow struct {
		CustomerGroupID   int64
		CustomerGroupCode string
	}
	var groups []groupRow
	if err := q.db.Raw(`SELECT customer_group_id, customer_group_code FROM customer_group`).Scan(&groups).Error; err != nil {
		return nil, 0, err
	}
	groupNames := make(map[int64]string, len(groups))
	for _, g := range groups {
		groupNames[g.CustomerGroupID] = g.CustomerGroupCode
	}

	addresses, err := q.customerAddresses(ids, defaultBilling, defaultShipping)
	if err != nil {
		return nil, 0, err
	}

	records := make([]magento.RawCustomer, 0, len(entities))
	for _, e := range entities {
		records = append(records, magento.RawCustomer{
			EntityID:  e.EntityID,
			Email:     e.Email,
			Firstname: firstnames[e.EntityID],
			Lastname:  lastnames[e.EntityID],
			Group:     groupNames[e.GroupID],
			Addresses: addresses[e.EntityID],
		})
	}
	return records, total, nil
}

// customerAddresses loads every address of the given customers and flags the
// ones the customer marked default.
func (q *queries) customerAddresses(customerIDs []int64, defaultBilling, defaultShipping map[int64]string) (map[int64][]magento.RawAddress, error) {
	type addrRow struct {
		EntityID int64
		ParentID int64
	}
	var rows []addrRow
	err := q.db.Raw(
		`SELECT entity_id, parent_id FROM customer_address_entity WHERE parent_id IN ? ORDER BY entity_id`,
		customerIDs,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[int64][]magento.RawAddress{}, nil
	}

	addrIDs := make([]int64, len(rows))
	for i, r := range rows {
		addrIDs[i] = r.EntityID
	}

	varchars := map[string]map[int64]string{}
	for _, code := range []string{"firstname", "lastname", "city", "region", "postcode", "country_id", "telephone"} {
		values, err := q.attrValues("customer_address_entity_varchar", "customer_address", code, addrIDs)
		if err != nil {
			return nil, err
		}
		varchars[code] = values
	}
	streets, err := q.attrValues("customer_address_entity_text", "customer_address", "street", addrIDs)
	if err != nil {
		return nil, err
	}

	addresses := make(map[int64][]magento.RawAddress)
	for _, r := range rows {
		addrID := strconv.FormatInt(r.EntityID, 10)
		addresses[r.ParentID] = append(addresses[r.ParentID], magento.RawAddress{
			Firstname:       varchars["firstname"][r.EntityID],
			Lastname:        varchars["lastname"][r.EntityID],
			Street:          streets[r.EntityID],
			City:            varchars["city"][r.EntityID],
			Region:          varchars["region"][r.EntityID],
			Postcode:        varchars["postcode"][r.EntityID],
			CountryID:       varchars["country_id"][r.EntityID],
			Telephone:       varchars["telephone"][r.EntityID],
			DefaultBilling:  defaultBilling[r.ParentID] == addrID,
			DefaultShipping: defaultShipping[r.ParentID] == addrID,
		})
	}
	return addresses, nil
}

func (q *queries) orders(page, limit int) ([]magento.RawOrder, int64, error) {
	var total int64
	if err := q.db.Raw(`SELECT COUNT(*) FROM sales_flat_order`).Scan(&total).Error; err != nil {
		return nil, 0, err
	}

	type orderRow struct {
		EntityID       int64
		IncrementID    string
		Status         string
		State          string
		Subtotal       *float64
		ShippingAmount *float64
		TaxAmount      *float64
		GrandTotal     *float64
		CustomerID     *int64
		CustomerEmail  string
	}
	var rows []orderRow
	err := q.db.Raw(
		`SELECT entity_id, increment_id, status, state, subtotal, shipping_amount,
		        tax_amount, grand_total, customer_id, customer_email
		 FROM sales_flat_order ORDER BY entity_id LIMIT ? OFFSET ?`,
		limit, (page-1)*limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	if len(rows) == 0 {
		return []magento.RawOrder{}, total, nil
	}

	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.EntityID
	}

	type itemRow struct {
		OrderID    int64
		SKU        string
		Name       string
		QtyOrdered float64
		Price      float64
		RowTotal   float64
	}
	var items []itemRow
	err = q.db.Raw(
		`SELECT order_id, sku, name, qty_ordered, price, row_total
		 FROM sales_flat_order_item WHERE order_id IN ? ORDER BY item_id`, ids,
	).Scan(&items).Error
	if err != nil {
		return nil, 0, err
	}
	itemsByOrder := make(map[int64][]magento.RawOrderItem)
	for _, it := range items {
		itemsByOrder[it.OrderID] = append(itemsByOrder[it.OrderID], magento.RawOrderItem{
			SKU:        it.SKU,
			Name:       it.Name,
			QtyOrdered: it.QtyOrdered,
			Price:      it.Price,
			RowTotal:   it.RowTotal,
		})
	}

	type addressRow struct {
		ParentID    int64
		AddressType string
		Firstname   string
		Lastname    string
		Street      string
		City        string
		Region      string
		Postcode    string
		CountryID   string
		Telephone   string
	}
	var addrs []addressRow
	err = q.db.Raw(
		`SELECT parent_id, address_type, firstname, lastname, street, city, region,
		        postcode, country_id, telephone
		 FROM sales_flat_order_address WHERE parent_id IN ?`, ids,
	).Scan(&addrs).Error
	if err != nil {
		return nil, 0, err
	}
	billingByOrder := make(map[int64]*magento.RawAddress)
	shippingByOrder := make(map[int64]*magento.RawAddress)
	for _, a := range addrs {
		addr := &magento.RawAddress{
			Firstname: a.Firstname,
			Lastname:  a.Lastname,
			Street:    a.Street,
			City:      a.City,
			Region:    a.Region,
			Postcode:  a.Postcode,
			CountryID: a.CountryID,
			Telephone: a.Telephone,
		}
		switch a.AddressType {
		case "billing":
			billingByOrder[a.ParentID] = addr
		case "shipping":
			shippingByOrder[a.ParentID] = addr
		}
	}

	records := make([]magento.RawOrder, 0, len(rows))
	for _, r := range rows {
		records = append(records, magento.RawOrder{
			EntityID:        r.EntityID,
			IncrementID:     r.IncrementID,
			Status:          r.Status,
			State:           r.State,
			Subtotal:        r.Subtotal,
			ShippingAmount:  r.ShippingAmount,
			TaxAmount:       r.TaxAmount,
			GrandTotal:      r.GrandTotal,
			CustomerID:      r.CustomerID,
			CustomerEmail:   r.CustomerEmail,
			BillingAddress:  billingByOrder[r.EntityID],
			ShippingAddress: shippingByOrder[r.EntityID],
			Items:           itemsByOrder[r.EntityID],
		})
	}
	return records, total, nil
}

func optString(values map[int64]string, id int64) *string {
	if v, ok := values[id]; ok && v != "" {
		return &v
	}
	return nil
}

func optFlag(values map[int64]string, id int64) *bool {
	if v, ok := values[id]; ok {
		b := v == "1"
		return &b
	}
	return nil
}
