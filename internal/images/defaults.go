package images

// DefaultRabbitMQ is the broker image used when a Queue does not name one.
// The official library image keeps its data under /var/lib/rabbitmq.
const DefaultRabbitMQ = "rabbitmq:3"

// ImageOrDefault returns the image if non-empty, otherwise the defaultImage.
func ImageOrDefault(image, defaultImage string) string {
	if image != "" {
		return image
	}
	return defaultImage
}
