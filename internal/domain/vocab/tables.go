package vocab

func defaultTables() map[Table]map[string]string {
	return map[Table]map[string]string{
		TableGender: {
			"M": "MALE", "F": "FEMALE",
			"MALE": "MALE", "FEMALE": "FEMALE",
			"OTHER": "OTHER",
			"NONE":  Unknown,
		},
		TableCustomerStatus: {
			"ACTIVE":    "ACTIVE",
			"INACTIVE":  "INACTIVE",
			"PENDING":   "PENDING",
			"SUSPENDED": "SUSPENDED",
			"NONE":      Unknown,
		},
		TablePaymentStatus: {
			"COMPLETED": "COMPLETED",
			"PENDING":   "PENDING",
			"FAILED":    "FAILED",
		},
		TableDeliveryStatus: {
			"DELIVERED":  "DELIVERED",
			"PENDING":    "PENDING",
			"IN_TRANSIT": "IN_TRANSIT",
			"PROCESSING": "PROCESSING",
			"SHIPPED":    "SHIPPED",
			"CANCELLED":  "CANCELLED",
			"RETURNED":   "RETURNED",
			"NONE":       Unknown,
		},
		TableState: {
			"CALIFORNIA": "CA", "NEW YORK": "NY", "ILLINOIS": "IL",
			"TEXAS": "TX", "PENNSYLVANIA": "PA", "ARIZONA": "AZ",
			"CA": "CA", "NY": "NY", "IL": "IL", "TX": "TX", "PA": "PA", "AZ": "AZ",
		},
		TableCity: {
			"LA": "Los Angeles", "LOSANGELES": "Los Angeles", "LOS ANGELES": "Los Angeles",
			"NYC": "New York", "NEW YORK CITY": "New York", "NEW_YORK": "New York", "NEW YORK": "New York",
			"PHILA": "Philadelphia", "PHILADELPHIA": "Philadelphia",
			"CHICAGO": "Chicago", "CHGO": "Chicago",
			"PHOENIX": "Phoenix",
			"HOUSTON": "Houston",
		},
	}
}
